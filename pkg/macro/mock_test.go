package macro_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/walteh/tsmacro/pkg/ast"
	"github.com/walteh/tsmacro/pkg/host"
	"github.com/walteh/tsmacro/pkg/macro"
)

type mockHost struct {
	mock.Mock
}

var _ host.Host = (*mockHost)(nil)

func (m *mockHost) ParseFile(ctx context.Context, name, text string) (*ast.Node, error) {
	args := m.Called(ctx, name, text)
	return args.Get(0).(*ast.Node), args.Error(1)
}

func (m *mockHost) ParseExpression(text string) (*ast.Node, error) {
	args := m.Called(text)
	return args.Get(0).(*ast.Node), args.Error(1)
}

func (m *mockHost) ParseStatements(text string) ([]*ast.Node, error) {
	args := m.Called(text)
	return args.Get(0).([]*ast.Node), args.Error(1)
}

func (m *mockHost) ParseType(text string) (*ast.Node, error) {
	args := m.Called(text)
	return args.Get(0).(*ast.Node), args.Error(1)
}

func (m *mockHost) ResolveIdentifier(file, name string) host.Binding {
	return m.Called(file, name).Get(0).(host.Binding)
}

func (m *mockHost) ResolveReexport(module, name string) (string, string, bool) {
	args := m.Called(module, name)
	return args.String(0), args.String(1), args.Bool(2)
}

func (m *mockHost) ImportedModules(file string) []string {
	return m.Called(file).Get(0).([]string)
}

func (m *mockHost) TypeOf(file string, node *ast.Node) string {
	return m.Called(file, node).String(0)
}

func TestContextAsksHost(t *testing.T) {
	h := &mockHost{}
	arg := ast.Ident("count")
	h.On("TypeOf", "a.ts", arg).Return("number").Once()
	h.On("ResolveIdentifier", "a.ts", "sql").Return(host.Binding{Kind: host.BindingImport, Module: "db", ExportName: "sql"}).Once()

	c := macro.NewContext(testContext(t), macro.ContextOptions{File: "a.ts", Host: h})
	assert.Equal(t, "number", c.TypeOf(arg))
	assert.Equal(t, host.Binding{Kind: host.BindingImport, Module: "db", ExportName: "sql"}, c.Resolve("sql"))
	h.AssertExpectations(t)

	bare := macro.NewContext(testContext(t), macro.ContextOptions{File: "a.ts"})
	assert.Equal(t, "unknown", bare.TypeOf(arg))
	assert.Equal(t, host.BindingUnbound, bare.Resolve("sql").Kind)
}

package diff_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/walteh/tsmacro/pkg/diff"
)

func TestLines(t *testing.T) {
	assert.Empty(t, diff.Lines("a\nb\n", "a\nb\n"))

	d := diff.Lines("const v = a |> f;\nconst w = 1;", "const v = __binop__(a, \"|>\", f);\nconst w = 1;")
	assert.Contains(t, d, "-const v = a |> f;")
	assert.Contains(t, d, "+const v = __binop__(a, \"|>\", f);")
	assert.Contains(t, d, " const w = 1;")
}

func TestUnified(t *testing.T) {
	assert.Empty(t, diff.Unified("a.ts", "x", "x", false))

	got := diff.Unified("a.ts", "x\n", "y\n", false)
	assert.Contains(t, got, "--- a.ts\n+++ a.ts (transformed)\n")
	assert.Contains(t, got, "-x\n")
	assert.Contains(t, got, "+y\n")
}

package fancy

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/tree"
)

// Tree returns a new rooted tree with common styling applied
func Tree(root string) *tree.Tree {
	t := tree.New()
	t.EnumeratorStyle(BranchStyle)
	t.Enumerator(tree.RoundedEnumerator)
	if root != "" {
		t.Root(RootStyle.Render(root))
	}
	return t
}

// BranchNode creates a styled section header node with a dimmed annotation
func BranchNode(title, note string) *tree.Tree {
	t := tree.New()
	t.EnumeratorStyle(BranchStyle)
	t.Enumerator(tree.RoundedEnumerator)
	if note == "" {
		return t.Root(title)
	}
	return t.Root(lipgloss.JoinHorizontal(lipgloss.Top, title, " ", InfoStyle.Render(note)))
}

// TruncateString truncates a string if it exceeds maxLength
func TruncateString(s string, maxLength int) string {
	r := []rune(s)
	if len(r) <= maxLength {
		return s
	}
	if maxLength <= 3 {
		return string(r[:maxLength])
	}
	return string(r[:maxLength-3]) + "..."
}

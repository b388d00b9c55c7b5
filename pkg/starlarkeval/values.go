package starlarkeval

import (
	"fmt"
	"strings"

	"go.starlark.net/starlark"

	"github.com/stackb/scriptbundles/pkg/bundle"
)

// menuItemValue is the starlark value returned by menu_item().
type menuItemValue struct {
	item   *bundle.MenuItem
	frozen bool
}

var _ starlark.Value = (*menuItemValue)(nil)

// String implements part of the starlark.Value interface.
func (v *menuItemValue) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "menu_item(name = %q", v.item.Name)
	if v.item.Command != "" {
		fmt.Fprintf(&sb, ", command = %q", v.item.Command)
	}
	if n := len(v.item.Children); n > 0 {
		fmt.Fprintf(&sb, ", children = <%d items>", n)
	}
	sb.WriteString(")")
	return sb.String()
}

// Type implements part of the starlark.Value interface.
func (v *menuItemValue) Type() string { return "menu_item" }

// Freeze implements part of the starlark.Value interface.
func (v *menuItemValue) Freeze() { v.frozen = true }

// Truth implements part of the starlark.Value interface.
func (v *menuItemValue) Truth() starlark.Bool { return starlark.True }

// Hash implements part of the starlark.Value interface.
func (v *menuItemValue) Hash() (uint32, error) {
	return 0, fmt.Errorf("unhashable type: %s", v.Type())
}

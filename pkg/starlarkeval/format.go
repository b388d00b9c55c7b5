package starlarkeval

import (
	"github.com/bazelbuild/buildtools/build"

	"github.com/stackb/scriptbundles/pkg/bundle"
	"github.com/stackb/scriptbundles/pkg/manifest"
)

// FormatBundle renders the bundle and its members as the script calls that
// would declare them, formatted the way buildifier formats starlark.
func FormatBundle(b *bundle.BundleElement) []byte {
	file := &build.File{
		Path: manifest.Path(b.BundleDirectory()),
		Type: build.TypeDefault,
	}
	file.Stmt = append(file.Stmt, bundleCall(b))
	for _, m := range b.Members() {
		if call := memberCall(m); call != nil {
			file.Stmt = append(file.Stmt, call)
		}
	}
	return build.Format(file)
}

func bundleCall(b *bundle.BundleElement) *build.CallExpr {
	call := newCall("bundle")
	kwarg(call, "name", b.DisplayName())
	meta := b.Metadata()
	kwarg(call, "author", meta.Author)
	kwarg(call, "copyright", meta.Copyright)
	kwarg(call, "description", meta.Description)
	kwarg(call, "repository", meta.Repository)
	kwarg(call, "license", meta.License)

	if fts := b.FileTypes(); len(fts) > 0 {
		dict := &build.DictExpr{ForceMultiLine: true}
		for _, ft := range fts {
			dict.List = append(dict.List, &build.KeyValueExpr{
				Key:   &build.StringExpr{Value: ft.Pattern},
				Value: &build.StringExpr{Value: ft.Scope},
			})
		}
		call.List = append(call.List, assign("file_types", dict))
	}
	for _, kind := range bundle.MarkerKinds {
		markers := b.Markers(kind)
		if len(markers) == 0 {
			continue
		}
		dict := &build.DictExpr{ForceMultiLine: true}
		for _, m := range markers {
			dict.List = append(dict.List, &build.KeyValueExpr{
				Key:   &build.StringExpr{Value: m.Selector.String()},
				Value: &build.StringExpr{Value: m.Value.String()},
			})
		}
		call.List = append(call.List, assign(markerParam(kind), dict))
	}
	return call
}

func memberCall(m bundle.Member) *build.CallExpr {
	switch t := m.(type) {
	case *bundle.CommandElement:
		if t.IsContentAssist() {
			call := newCall("content_assist")
			kwarg(call, "name", t.DisplayName())
			kwarg(call, "scope", t.Scope)
			kwarg(call, "invoke", t.Invoke)
			return call
		}
		call := newCall("command")
		kwarg(call, "name", t.DisplayName())
		kwarg(call, "scope", t.Scope)
		kwarg(call, "invoke", t.Invoke)
		kwarg(call, "key_binding", t.KeyBinding)
		kwarg(call, "trigger", t.Trigger)
		if !(len(t.Platforms) == 1 && t.Platforms[0] == bundle.AllPlatforms) {
			call.List = append(call.List, assign("platforms", stringListExpr(t.Platforms)))
		}
		return call
	case *bundle.SnippetElement:
		call := newCall("snippet")
		kwarg(call, "name", t.DisplayName())
		kwarg(call, "trigger", t.Trigger)
		kwarg(call, "expansion", t.Expansion)
		kwarg(call, "scope", t.Scope)
		return call
	case *bundle.MenuElement:
		call := newCall("menu")
		kwarg(call, "name", t.DisplayName())
		kwarg(call, "scope", t.Scope)
		if len(t.Children) > 0 {
			call.List = append(call.List, assign("children", menuItemList(t.Children)))
		}
		return call
	}
	return nil
}

func menuItemList(items []*bundle.MenuItem) *build.ListExpr {
	list := &build.ListExpr{ForceMultiLine: true}
	for _, item := range items {
		call := newCall("menu_item")
		kwarg(call, "name", item.Name)
		kwarg(call, "command", item.Command)
		if len(item.Children) > 0 {
			call.List = append(call.List, assign("children", menuItemList(item.Children)))
		}
		list.List = append(list.List, call)
	}
	return list
}

func stringListExpr(values []string) *build.ListExpr {
	list := &build.ListExpr{}
	for _, v := range values {
		list.List = append(list.List, &build.StringExpr{Value: v})
	}
	return list
}

func newCall(name string) *build.CallExpr {
	return &build.CallExpr{X: &build.Ident{Name: name}, ForceMultiLine: true}
}

// kwarg appends name = value unless value is empty.
func kwarg(call *build.CallExpr, name, value string) {
	if value == "" {
		return
	}
	call.List = append(call.List, assign(name, &build.StringExpr{Value: value}))
}

func assign(name string, value build.Expr) *build.AssignExpr {
	return &build.AssignExpr{
		LHS: &build.Ident{Name: name},
		Op:  "=",
		RHS: value,
	}
}

func markerParam(kind bundle.MarkerKind) string {
	switch kind {
	case bundle.IncreaseIndent:
		return "increase_indent"
	case bundle.DecreaseIndent:
		return "decrease_indent"
	case bundle.FoldingStart:
		return "folding_start"
	default:
		return "folding_stop"
	}
}

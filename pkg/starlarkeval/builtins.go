package starlarkeval

import (
	"fmt"

	"github.com/dlclark/regexp2"
	"go.starlark.net/starlark"

	"github.com/stackb/scriptbundles/pkg/bundle"
	"github.com/stackb/scriptbundles/pkg/manifest"
)

func (e *Engine) predeclared() starlark.StringDict {
	return starlark.StringDict{
		"bundle":         starlark.NewBuiltin("bundle", e.bundleBuiltin),
		"command":        starlark.NewBuiltin("command", e.commandBuiltin),
		"content_assist": starlark.NewBuiltin("content_assist", e.contentAssistBuiltin),
		"snippet":        starlark.NewBuiltin("snippet", e.snippetBuiltin),
		"menu":           starlark.NewBuiltin("menu", e.menuBuiltin),
		"menu_item":      starlark.NewBuiltin("menu_item", menuItemBuiltin),
	}
}

// bundleBuiltin implements bundle().  It creates the bundle of the current
// bundle directory or updates the existing one.
func (e *Engine) bundleBuiltin(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	ctx, err := contextOf(thread)
	if err != nil {
		return nil, err
	}
	if !manifest.IsManifest(ctx.path) {
		return nil, fmt.Errorf("%s: may only be called from %s", fn.Name(), manifest.FileName)
	}

	var (
		name                                               string
		meta                                               bundle.Metadata
		fileTypes, increase, decrease, foldStart, foldStop *starlark.Dict
	)
	if err := starlark.UnpackArgs(fn.Name(), args, kwargs,
		"name??", &name,
		"author?", &meta.Author,
		"copyright?", &meta.Copyright,
		"description?", &meta.Description,
		"repository?", &meta.Repository,
		"license?", &meta.License,
		"file_types?", &fileTypes,
		"increase_indent?", &increase,
		"decrease_indent?", &decrease,
		"folding_start?", &foldStart,
		"folding_stop?", &foldStop,
	); err != nil {
		return nil, err
	}

	types, err := stringPairs(fn.Name(), "file_types", fileTypes)
	if err != nil {
		return nil, err
	}
	markers := make(map[bundle.MarkerKind][][2]string)
	for kind, d := range map[bundle.MarkerKind]*starlark.Dict{
		bundle.IncreaseIndent: increase,
		bundle.DecreaseIndent: decrease,
		bundle.FoldingStart:   foldStart,
		bundle.FoldingStop:    foldStop,
	} {
		pairs, err := stringPairs(fn.Name(), markerParam(kind), d)
		if err != nil {
			return nil, err
		}
		markers[kind] = pairs
	}
	compiled := make(map[bundle.MarkerKind][]*regexp2.Regexp)
	for _, kind := range bundle.MarkerKinds {
		for _, pair := range markers[kind] {
			re, err := regexp2.Compile(pair[1], regexp2.None)
			if err != nil {
				return nil, fmt.Errorf("%s: %s marker for %q: %w", fn.Name(), kind, pair[0], err)
			}
			compiled[kind] = append(compiled[kind], re)
		}
	}

	dir := e.host.GetBundleDirectory(ctx.path)
	if name == "" {
		name = manifest.DefaultName(ctx.path)
	}

	b := e.host.GetBundleFromPath(dir)
	isNew := b == nil
	if isNew {
		b = bundle.NewBundleElement(name, ctx.path, dir, e.host.GetBundlePrecedence(dir))
	} else if b.DisplayName() != name {
		e.logger.Warn().
			Str("script", ctx.path).
			Str("name", b.DisplayName()).
			Str("declared", name).
			Msg("bundle name cannot change once loaded; reload the bundle to rename it")
	}

	b.SetMetadata(meta)
	for _, pair := range types {
		b.AddFileType(pair[0], pair[1])
	}
	for _, kind := range bundle.MarkerKinds {
		for i, pair := range markers[kind] {
			b.SetMarker(kind, pair[0], compiled[kind][i])
		}
	}
	b.SetLoadPaths(ctx.loadPaths)

	if isNew {
		e.registry.RegisterElement(b)
		e.host.AddBundle(b)
	} else {
		e.host.Events().FireElementModified(b)
	}
	return starlark.None, nil
}

// commandBuiltin implements command().
func (e *Engine) commandBuiltin(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	ctx, err := contextOf(thread)
	if err != nil {
		return nil, err
	}
	var name, scopeName, invoke, keyBinding, trigger string
	var platforms *starlark.List
	if err := starlark.UnpackArgs(fn.Name(), args, kwargs,
		"name", &name,
		"scope?", &scopeName,
		"invoke?", &invoke,
		"key_binding?", &keyBinding,
		"platforms?", &platforms,
		"trigger?", &trigger,
	); err != nil {
		return nil, err
	}
	cmd := bundle.NewCommandElement(name, ctx.path)
	cmd.Scope = scopeName
	cmd.Invoke = invoke
	cmd.KeyBinding = keyBinding
	cmd.Trigger = trigger
	if platforms != nil {
		list, err := stringList(fn.Name(), "platforms", platforms)
		if err != nil {
			return nil, err
		}
		cmd.Platforms = list
	}
	e.attach(ctx, cmd)
	return starlark.None, nil
}

// contentAssistBuiltin implements content_assist().
func (e *Engine) contentAssistBuiltin(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	ctx, err := contextOf(thread)
	if err != nil {
		return nil, err
	}
	var name, scopeName, invoke string
	if err := starlark.UnpackArgs(fn.Name(), args, kwargs,
		"name", &name,
		"scope?", &scopeName,
		"invoke?", &invoke,
	); err != nil {
		return nil, err
	}
	assist := bundle.NewContentAssistElement(name, ctx.path)
	assist.Scope = scopeName
	assist.Invoke = invoke
	e.attach(ctx, assist)
	return starlark.None, nil
}

// snippetBuiltin implements snippet().
func (e *Engine) snippetBuiltin(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	ctx, err := contextOf(thread)
	if err != nil {
		return nil, err
	}
	var name, trigger, expansion, scopeName string
	if err := starlark.UnpackArgs(fn.Name(), args, kwargs,
		"name", &name,
		"trigger", &trigger,
		"expansion", &expansion,
		"scope?", &scopeName,
	); err != nil {
		return nil, err
	}
	s := bundle.NewSnippetElement(name, ctx.path)
	s.Trigger = trigger
	s.Expansion = expansion
	s.Scope = scopeName
	e.attach(ctx, s)
	return starlark.None, nil
}

// menuBuiltin implements menu().
func (e *Engine) menuBuiltin(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	ctx, err := contextOf(thread)
	if err != nil {
		return nil, err
	}
	var name, scopeName string
	var children *starlark.List
	if err := starlark.UnpackArgs(fn.Name(), args, kwargs,
		"name", &name,
		"scope?", &scopeName,
		"children?", &children,
	); err != nil {
		return nil, err
	}
	items, err := menuItems(fn.Name(), children)
	if err != nil {
		return nil, err
	}
	m := bundle.NewMenuElement(name, ctx.path)
	m.Scope = scopeName
	m.Children = items
	e.attach(ctx, m)
	return starlark.None, nil
}

// menuItemBuiltin implements menu_item().  The returned value is only
// meaningful as a child of menu() or another menu_item().
func menuItemBuiltin(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var name, command string
	var children *starlark.List
	if err := starlark.UnpackArgs(fn.Name(), args, kwargs,
		"name", &name,
		"command?", &command,
		"children?", &children,
	); err != nil {
		return nil, err
	}
	items, err := menuItems(fn.Name(), children)
	if err != nil {
		return nil, err
	}
	return &menuItemValue{item: &bundle.MenuItem{Name: name, Command: command, Children: items}}, nil
}

// attach adds a member to the bundle of the script's directory, creating a
// bundle with the default name when the directory has none yet.
func (e *Engine) attach(ctx *scriptContext, m bundle.Member) {
	dir := e.host.GetBundleDirectory(ctx.path)
	b := e.host.GetBundleFromPath(dir)
	if b == nil {
		b = bundle.NewBundleElement(manifest.DefaultName(manifest.Path(dir)), ctx.path, dir, e.host.GetBundlePrecedence(dir))
		b.SetLoadPaths(ctx.loadPaths)
		e.registry.RegisterElement(b)
		e.host.AddBundle(b)
	}
	e.registry.RegisterElement(m)
	b.AddElement(m)
	e.host.Events().FireElementAdded(m)
}

func stringPairs(fnname, param string, d *starlark.Dict) ([][2]string, error) {
	if d == nil {
		return nil, nil
	}
	var pairs [][2]string
	for _, item := range d.Items() {
		k, ok1 := starlark.AsString(item[0])
		v, ok2 := starlark.AsString(item[1])
		if !ok1 || !ok2 {
			return nil, fmt.Errorf("%s: %s: want dict of string to string, got %s: %s", fnname, param, item[0].Type(), item[1].Type())
		}
		pairs = append(pairs, [2]string{k, v})
	}
	return pairs, nil
}

func stringList(fnname, param string, list *starlark.List) ([]string, error) {
	out := make([]string, 0, list.Len())
	for i := 0; i < list.Len(); i++ {
		s, ok := starlark.AsString(list.Index(i))
		if !ok {
			return nil, fmt.Errorf("%s: %s[%d]: want string, got %s", fnname, param, i, list.Index(i).Type())
		}
		out = append(out, s)
	}
	return out, nil
}

func menuItems(fnname string, list *starlark.List) ([]*bundle.MenuItem, error) {
	if list == nil {
		return nil, nil
	}
	items := make([]*bundle.MenuItem, 0, list.Len())
	for i := 0; i < list.Len(); i++ {
		v, ok := list.Index(i).(*menuItemValue)
		if !ok {
			return nil, fmt.Errorf("%s: children[%d]: want menu_item, got %s", fnname, i, list.Index(i).Type())
		}
		items = append(items, v.item)
	}
	return items, nil
}

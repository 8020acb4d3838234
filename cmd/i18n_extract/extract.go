// Copyright 2025, the Synthoma Reader contributors
// SPDX-License-Identifier: AGPL-3.0-only

package main

import (
	"cmp"
	"fmt"
	"go/ast"
	"go/constant"
	"go/token"
	"go/types"
	"path/filepath"
	"slices"

	"golang.org/x/tools/go/packages"
)

// i18nPath is the import path of the translation package.
const i18nPath = "codeberg.org/synthoma/reader/i18n"

// msgidArg is the position of the msgid in each translating call.
// TrN also takes its plural form right after it.
var msgidArg = map[string]int{
	"Tr":           1,
	"TrN":          1,
	"NewUserError": 1,
}

// entry is one msgid with the places it is used.
type entry struct {
	id     string
	plural string
	refs   []string
}

type collector struct {
	root    string
	fset    *token.FileSet
	info    *types.Info
	entries map[[2]string]*entry
}

// extract returns every constant msgid passed to the i18n package, converted
// to i18n.MsgKey or passed as a MsgKey parameter, sorted by msgid.
func extract(pkgs []*packages.Package, root string) []entry {
	c := &collector{root: root, entries: map[[2]string]*entry{}}

	for _, p := range pkgs {
		if p.TypesInfo == nil {
			continue
		}

		c.fset, c.info = p.Fset, p.TypesInfo

		for _, f := range p.Syntax {
			ast.Inspect(f, func(n ast.Node) bool {
				if call, ok := n.(*ast.CallExpr); ok {
					c.call(call)
				}

				return true
			})
		}
	}

	out := make([]entry, 0, len(c.entries))
	for _, e := range c.entries {
		slices.Sort(e.refs)
		e.refs = slices.Compact(e.refs)
		out = append(out, *e)
	}

	slices.SortFunc(out, func(a, b entry) int {
		return cmp.Or(cmp.Compare(a.id, b.id), cmp.Compare(a.plural, b.plural))
	})

	return out
}

func (c *collector) call(x *ast.CallExpr) {
	// i18n.MsgKey("...")
	if tv, ok := c.info.Types[x.Fun]; ok && tv.IsType() {
		if len(x.Args) == 1 && isMsgKey(tv.Type) {
			c.add(x.Args[0], nil)
		}

		return
	}

	if sel, ok := x.Fun.(*ast.SelectorExpr); ok {
		fn, ok := c.info.Uses[sel.Sel].(*types.Func)
		if ok && fn.Pkg() != nil && fn.Pkg().Path() == i18nPath {
			if i, ok := msgidArg[fn.Name()]; ok && len(x.Args) > i {
				var plural ast.Expr
				if fn.Name() == "TrN" && len(x.Args) > i+1 {
					plural = x.Args[i+1]
				}

				c.add(x.Args[i], plural)

				return
			}
		}
	}

	// any function taking an i18n.MsgKey parameter
	sig, ok := c.info.TypeOf(x.Fun).(*types.Signature)
	if !ok {
		return
	}

	params := sig.Params()

	for i, arg := range x.Args {
		if i >= params.Len() || (sig.Variadic() && i == params.Len()-1) {
			break
		}

		if isMsgKey(params.At(i).Type()) {
			c.add(arg, nil)
		}
	}
}

func (c *collector) add(idExpr, pluralExpr ast.Expr) {
	id, ok := c.constString(idExpr)
	if !ok {
		return
	}

	plural := ""
	if pluralExpr != nil {
		if plural, ok = c.constString(pluralExpr); !ok {
			return
		}
	}

	key := [2]string{id, plural}

	e, ok := c.entries[key]
	if !ok {
		e = &entry{id: id, plural: plural}
		c.entries[key] = e
	}

	pos := c.fset.Position(idExpr.Pos())

	file := pos.Filename
	if rel, err := filepath.Rel(c.root, file); err == nil {
		file = rel
	}

	e.refs = append(e.refs, fmt.Sprintf("%s:%d", filepath.ToSlash(file), pos.Line))
}

// constString evaluates a constant string expression.
func (c *collector) constString(expr ast.Expr) (string, bool) {
	tv, ok := c.info.Types[expr]
	if !ok || tv.Value == nil || tv.Value.Kind() != constant.String {
		return "", false
	}

	return constant.StringVal(tv.Value), true
}

func isMsgKey(t types.Type) bool {
	named, ok := t.(*types.Named)
	if !ok {
		return false
	}

	obj := named.Obj()

	return obj != nil && obj.Pkg() != nil && obj.Pkg().Path() == i18nPath && obj.Name() == "MsgKey"
}

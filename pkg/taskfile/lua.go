// SPDX-License-Identifier: MPL-2.0

package taskfile

import (
	"bytes"
	"fmt"

	lua "github.com/yuin/gopher-lua"
)

// parseLua runs a Lua task file in a sandboxed state; the chunk must return
// the task file as a table. Tasks are ordered by name.
func parseLua(data []byte, filename string) (map[string]any, []string, error) {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	defer L.Close()

	// No io, os, debug or package: a task file only builds data.
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)

	fn, err := L.Load(bytes.NewReader(data), filename)
	if err != nil {
		return nil, nil, err
	}
	L.Push(fn)
	if err := L.PCall(0, 1, nil); err != nil {
		return nil, nil, err
	}
	ret := L.Get(-1)
	L.Pop(1)

	table, ok := ret.(*lua.LTable)
	if !ok {
		return nil, nil, fmt.Errorf("lua task file must return a table, got %s", ret.Type())
	}
	raw := luaToGo(table, make(map[*lua.LTable]bool))
	if raw == nil {
		return map[string]any{}, nil, nil
	}
	doc, ok := raw.(map[string]any)
	if !ok {
		return nil, nil, fmt.Errorf("lua task file must return a table with named fields")
	}
	return doc, nil, nil
}

func luaToGo(lv lua.LValue, visited map[*lua.LTable]bool) any {
	switch v := lv.(type) {
	case lua.LBool:
		return bool(v)
	case lua.LNumber:
		f := float64(v)
		if f == float64(int64(f)) {
			return int64(f)
		}
		return f
	case lua.LString:
		return string(v)
	case *lua.LTable:
		if visited[v] {
			return nil
		}
		visited[v] = true
		defer delete(visited, v)
		return luaTableToGo(v, visited)
	default:
		return nil
	}
}

// luaTableToGo converts a contiguous 1-based table to a slice and anything
// else to a map. Empty tables and nil-valued entries are dropped so that
// optional fields written as {} are treated as absent.
func luaTableToGo(t *lua.LTable, visited map[*lua.LTable]bool) any {
	maxN, count, isArray := 0, 0, true
	t.ForEach(func(k, _ lua.LValue) {
		count++
		if kn, ok := k.(lua.LNumber); ok {
			if n := int(kn); float64(n) == float64(kn) && n > 0 {
				maxN = max(maxN, n)
				return
			}
		}
		isArray = false
	})

	if count == 0 {
		return nil
	}
	if isArray && count == maxN {
		arr := make([]any, 0, maxN)
		for i := 1; i <= maxN; i++ {
			if v := luaToGo(t.RawGetInt(i), visited); v != nil {
				arr = append(arr, v)
			}
		}
		return arr
	}

	m := make(map[string]any, count)
	t.ForEach(func(k, v lua.LValue) {
		gv := luaToGo(v, visited)
		if gv == nil {
			return
		}
		m[k.String()] = gv
	})
	return m
}

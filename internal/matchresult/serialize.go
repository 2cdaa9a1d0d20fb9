package matchresult

import "github.com/chananele/parm/internal/armmodel"

// ToObj serializes the scope tree (spec §4.3, §6): literal results merged
// with sub_matches (named or index-keyed singles) and sub_multi_matches
// (named or index-keyed lists). When an integer index and a string name
// both alias the same scope, only the name appears (spec §4.3 invariant b).
// Addresses serialize as integers, registers as their canonical name, and
// shifted registers/lists follow armmodel's Serialize conventions (§6).
func (mr *MatchResult) ToObj() map[string]interface{} {
	out := make(map[string]interface{})

	for key, val := range mr.currentResults() {
		out[key] = serializeValue(val)
	}

	subMatches := make(map[string]interface{})
	for i := 0; i < mr.scopeIx.Value(); i++ {
		key := indexKey(i)
		child, ok := mr.sub.Get(key)
		if !ok {
			continue
		}
		label := key
		if name, named := mr.names.Get(key); named {
			label = name
		}
		subMatches[label] = child.ToObj()
	}
	if len(subMatches) > 0 {
		out["sub_matches"] = subMatches
	}

	subMulti := make(map[string]interface{})
	for i := 0; i < mr.scopeIx.Value(); i++ {
		key := indexKey(i)
		child, ok := mr.subs.Get(key)
		if !ok {
			continue
		}
		label := key
		if name, named := mr.names.Get(key); named {
			label = name
		}
		list := make([]map[string]interface{}, 0, child.Len())
		for _, scope := range child.All() {
			list = append(list, scope.ToObj())
		}
		subMulti[label] = list
	}
	if len(subMulti) > 0 {
		out["sub_multi_matches"] = subMulti
	}

	return out
}

// currentResults collects every bound (non-declared-var, or filled
// declared-var) key visible in this scope's own results map, skipping
// still-unset declared variables.
func (mr *MatchResult) currentResults() map[string]interface{} {
	out := make(map[string]interface{})
	for key, raw := range mr.results.Snapshot() {
		if dv, ok := raw.(*declaredVar); ok {
			if !dv.set {
				continue
			}
			out[key] = dv.val
			continue
		}
		out[key] = raw
	}
	return out
}

// ToJSON is ToObj with every integer-looking key already a string (the
// keys this package produces are always strings already, so ToJSON exists
// only to mirror spec §4.3's naming and to recursively convert nested
// armmodel values the same way ToObj does).
func (mr *MatchResult) ToJSON() map[string]interface{} {
	return mr.ToObj()
}

func serializeValue(v interface{}) interface{} {
	switch x := v.(type) {
	case armmodel.Serializable:
		return x.Serialize()
	case []interface{}:
		out := make([]interface{}, len(x))
		for i, e := range x {
			out[i] = serializeValue(e)
		}
		return out
	default:
		return x
	}
}

package account

import "fmt"

// MaxSigCheckDepth bounds recursive authority resolution through
// referenced accounts (spec §4.9).
const MaxSigCheckDepth = 6

// SatisfiesAuthority reports whether the set of signing keys presented
// satisfies auth's weighted threshold, resolving any account entries in
// auth recursively through their own active authority up to
// MaxSigCheckDepth, with cycle detection via a visited-account set.
func (r *Registry) SatisfiesAuthority(auth Authority, presentedKeys map[string]bool) (bool, error) {
	weight, err := r.resolveWeight(auth, presentedKeys, map[string]bool{}, 0)
	if err != nil {
		return false, err
	}
	return weight >= auth.Threshold, nil
}

func (r *Registry) resolveWeight(auth Authority, presentedKeys map[string]bool, visited map[string]bool, depth int) (uint32, error) {
	if depth > MaxSigCheckDepth {
		return 0, fmt.Errorf("account: authority resolution exceeds max depth %d", MaxSigCheckDepth)
	}
	var total uint32
	for _, kw := range auth.Keys {
		if presentedKeys[kw.Key] {
			total += kw.Weight
		}
	}
	for _, aw := range auth.Accounts {
		if visited[aw.Account] {
			return 0, fmt.Errorf("account: authority cycle detected at %q", aw.Account)
		}
		sub, ok := r.Authority(aw.Account, AuthorityActive)
		if !ok {
			continue
		}
		nextVisited := make(map[string]bool, len(visited)+1)
		for k := range visited {
			nextVisited[k] = true
		}
		nextVisited[aw.Account] = true
		subWeight, err := r.resolveWeight(sub, presentedKeys, nextVisited, depth+1)
		if err != nil {
			return 0, err
		}
		if subWeight >= sub.Threshold {
			total += aw.Weight
		}
	}
	return total, nil
}

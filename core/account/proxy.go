package account

import "fmt"

// MaxProxyDepth bounds proxy chain traversal (spec §4.2: "Proxy chains
// may not exceed depth 4").
const MaxProxyDepth = 4

// SetProxy points account's votes at proxy and validates the resulting
// chain is acyclic and within MaxProxyDepth. It does not clear the
// account's individual producer/officer/executive votes. Passing an
// empty proxy clears it.
func (r *Registry) SetProxy(account, proxy string) error {
	if proxy != "" {
		if err := r.checkProxyChain(account, proxy); err != nil {
			return err
		}
	}
	acct, ok := r.accounts.Get(account)
	if !ok {
		return fmt.Errorf("account: unknown account %q", account)
	}
	oldProxy := acct.Proxy
	if oldProxy == proxy {
		return nil
	}
	if oldProxy != "" {
		if err := r.accounts.Modify(oldProxy, func(p *Account) {
			if p.ProxiedBy != nil {
				delete(p.ProxiedBy, account)
			}
		}); err != nil {
			return err
		}
	}
	if proxy != "" {
		if err := r.accounts.Modify(proxy, func(p *Account) {
			if p.ProxiedBy == nil {
				p.ProxiedBy = make(map[string]bool)
			}
			p.ProxiedBy[account] = true
		}); err != nil {
			return err
		}
	}
	return r.accounts.Modify(account, func(a *Account) { a.Proxy = proxy })
}

// checkProxyChain walks from proxy forward through its own proxy chain,
// rejecting a cycle back to account or a chain deeper than
// MaxProxyDepth, for account itself or for any account already proxying
// into it, using a visited-id set as spec §4.2 prescribes.
func (r *Registry) checkProxyChain(account, proxy string) error {
	// upstream is the longest run of proxiers already pointing into
	// account; their chains grow by as much as account's own does.
	var upstream func(name string, hops int) int
	upstream = func(name string, hops int) int {
		best := hops
		if acct, ok := r.accounts.Get(name); ok && hops <= MaxProxyDepth {
			for proxier := range acct.ProxiedBy {
				if d := upstream(proxier, hops+1); d > best {
					best = d
				}
			}
		}
		return best
	}
	visited := map[string]bool{account: true}
	cur := proxy
	for depth := upstream(account, 0); cur != ""; depth++ {
		if depth >= MaxProxyDepth {
			return fmt.Errorf("account: proxy chain would exceed max depth %d", MaxProxyDepth)
		}
		if visited[cur] {
			return fmt.Errorf("account: proxy cycle detected (ProxyCycle)")
		}
		visited[cur] = true
		next, ok := r.accounts.Get(cur)
		if !ok {
			return fmt.Errorf("account: unknown proxy account %q", cur)
		}
		cur = next.Proxy
	}
	return nil
}

// ProxyChainDepth returns the depth of account's proxy chain (0 if it has
// no proxy), used by invariant checks (spec §8 item 3).
func (r *Registry) ProxyChainDepth(account string) (int, error) {
	visited := map[string]bool{account: true}
	depth := 0
	acct, ok := r.accounts.Get(account)
	if !ok {
		return 0, fmt.Errorf("account: unknown account %q", account)
	}
	cur := acct.Proxy
	for cur != "" {
		if visited[cur] {
			return 0, fmt.Errorf("account: proxy cycle detected at %q", cur)
		}
		visited[cur] = true
		depth++
		if depth > MaxProxyDepth {
			return depth, fmt.Errorf("account: proxy chain exceeds max depth")
		}
		next, ok := r.accounts.Get(cur)
		if !ok {
			break
		}
		cur = next.Proxy
	}
	return depth, nil
}

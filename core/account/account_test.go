package account

import (
	"testing"

	"chainforge/core/store"

	"github.com/stretchr/testify/require"
)

func simpleAuth(key string) Authority {
	return Authority{Threshold: 1, Keys: []KeyWeight{{Key: key, Weight: 1}}}
}

func TestCreateAndAuthority(t *testing.T) {
	r := New(store.New())
	require.NoError(t, r.Create(Account{Name: "alice"}, simpleAuth("owner1"), simpleAuth("active1"), simpleAuth("posting1"), 0))

	auth, ok := r.Authority("alice", AuthorityActive)
	require.True(t, ok)
	sat, err := r.SatisfiesAuthority(auth, map[string]bool{"active1": true})
	require.NoError(t, err)
	require.True(t, sat)
}

func TestOwnerUpdateRateLimited(t *testing.T) {
	r := New(store.New())
	require.NoError(t, r.Create(Account{Name: "alice"}, simpleAuth("owner1"), simpleAuth("active1"), simpleAuth("posting1"), 0))
	require.Error(t, r.UpdateAuthority("alice", AuthorityOwner, simpleAuth("owner2"), 100))
	require.NoError(t, r.UpdateAuthority("alice", AuthorityOwner, simpleAuth("owner2"), 3601))
}

// S2 — Proxy cycle rejected.
func TestProxyCycleRejectedS2(t *testing.T) {
	r := New(store.New())
	require.NoError(t, r.Create(Account{Name: "a"}, simpleAuth("k"), simpleAuth("k"), simpleAuth("k"), 0))
	require.NoError(t, r.Create(Account{Name: "b"}, simpleAuth("k"), simpleAuth("k"), simpleAuth("k"), 0))

	require.NoError(t, r.SetProxy("a", "b"))
	err := r.SetProxy("b", "a")
	require.Error(t, err)

	b, _ := r.Get("b")
	require.Equal(t, "", b.Proxy)
}

func TestProxyChainDepthLimit(t *testing.T) {
	r := New(store.New())
	names := []string{"a", "b", "c", "d", "e", "f"}
	for _, n := range names {
		require.NoError(t, r.Create(Account{Name: n}, simpleAuth("k"), simpleAuth("k"), simpleAuth("k"), 0))
	}
	require.NoError(t, r.SetProxy("a", "b"))
	require.NoError(t, r.SetProxy("b", "c"))
	require.NoError(t, r.SetProxy("c", "d"))
	require.NoError(t, r.SetProxy("d", "e"))
	// e -> f would make a's chain depth 5, exceeding MaxProxyDepth (4).
	err := r.SetProxy("e", "f")
	require.Error(t, err)
}

func TestRecoveryLifecycle(t *testing.T) {
	r := New(store.New())
	reqs := NewRecoveryRequests(store.New())
	_ = reqs
	s := store.New()
	r = New(s)
	reqs = NewRecoveryRequests(s)

	require.NoError(t, r.Create(Account{Name: "alice", Recovery: "recoveryco"}, simpleAuth("owner1"), simpleAuth("active1"), simpleAuth("posting1"), 0))

	newOwner := simpleAuth("owner2")
	require.NoError(t, r.RequestAccountRecovery(reqs, "alice", newOwner, 0))

	err := r.RecoverAccount(reqs, "alice", simpleAuth("owner1"), newOwner, 100)
	require.NoError(t, err)

	auth, _ := r.Authority("alice", AuthorityOwner)
	require.True(t, authoritiesEqual(auth, newOwner))

	_, stillPending := reqs.table.Get("alice")
	require.False(t, stillPending)
}

package asset

import (
	"fmt"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/xchain-pricer/internal/apperror"
)

// Pair is a resolved (network, asset) address.
type Pair struct {
	Network Network
	Asset   Asset
	Address common.Address
}

// Mapper resolves (network, asset) to an on-chain address. It is built once
// at startup and passed to consumers explicitly.
type Mapper struct {
	book        map[Network]map[Asset]common.Address
	addressZero common.Address
	mu          sync.RWMutex
}

// NewMapper creates a Mapper seeded with the static address book. overrides
// replace or add entries. Native assets always resolve to addressZero.
func NewMapper(addressZero common.Address, overrides map[Network]map[Asset]common.Address) *Mapper {
	m := &Mapper{
		book:        make(map[Network]map[Asset]common.Address, len(addressBook)),
		addressZero: addressZero,
	}

	for n, assets := range addressBook {
		for a, addr := range assets {
			m.set(n, a, addr)
		}
	}
	for n, assets := range overrides {
		for a, addr := range assets {
			m.set(n, a, addr)
		}
	}

	return m
}

func (m *Mapper) set(n Network, a Asset, addr common.Address) {
	inner, ok := m.book[n]
	if !ok {
		inner = make(map[Asset]common.Address)
		m.book[n] = inner
	}
	inner[a] = addr
}

// Register adds or replaces an address.
func (m *Mapper) Register(n Network, a Asset, addr common.Address) {
	if !n.Valid() || !a.Valid() {
		panic(fmt.Sprintf("asset: cannot register %s on %s", a, n))
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.set(n, a, addr)
}

// AddressOf returns the address of a on n. The native asset of n resolves to
// the zero address.
func (m *Mapper) AddressOf(n Network, a Asset) (common.Address, bool) {
	if !n.Valid() || !a.Valid() {
		return common.Address{}, false
	}
	if n.Native() == a {
		return m.addressZero, true
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	addr, ok := m.book[n][a]
	return addr, ok
}

// Native returns the native asset of n.
func (m *Mapper) Native(n Network) Asset {
	return n.Native()
}

// IsNative reports whether a is the gas coin of n.
func (m *Mapper) IsNative(n Network, a Asset) bool {
	return n.Valid() && n.Native() == a
}

// AddressZero returns the address that stands for native coins.
func (m *Mapper) AddressZero() common.Address {
	return m.addressZero
}

// Pairs returns every resolvable (network, asset) pair, natives included,
// sorted by network then asset.
func (m *Mapper) Pairs() []Pair {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Pair
	for _, n := range Networks() {
		out = append(out, Pair{Network: n, Asset: n.Native(), Address: m.addressZero})
		for a, addr := range m.book[n] {
			if a == n.Native() {
				continue
			}
			out = append(out, Pair{Network: n, Asset: a, Address: addr})
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Network != out[j].Network {
			return out[i].Network < out[j].Network
		}
		return out[i].Asset < out[j].Asset
	})
	return out
}

// ParseOverrides converts a config map of network name -> asset symbol ->
// hex address into typed overrides.
func ParseOverrides(raw map[string]map[string]string) (map[Network]map[Asset]common.Address, error) {
	out := make(map[Network]map[Asset]common.Address, len(raw))
	for netName, assets := range raw {
		n, err := ParseNetwork(netName)
		if err != nil {
			return nil, err
		}
		for sym, hex := range assets {
			a, err := ParseAsset(sym)
			if err != nil {
				return nil, err
			}
			if !common.IsHexAddress(hex) {
				return nil, apperror.Validation(apperror.CodeInvalidFormat, fmt.Sprintf("address %s/%s: %q", n, a, hex))
			}
			if out[n] == nil {
				out[n] = make(map[Asset]common.Address)
			}
			out[n][a] = common.HexToAddress(hex)
		}
	}
	return out, nil
}

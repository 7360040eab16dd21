// Package stake provides the account-state lookups that give votes their
// weight.
package stake

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/holiman/uint256"
	"github.com/mosaicnetworks/attest/src/common"
	"github.com/sirupsen/logrus"
)

// Provider returns the voting weight of an account. It is queried when a vote
// is applied, never cached by the ledger.
type Provider interface {
	Weight(account common.Address) (*uint256.Int, error)
}

// FlatProvider gives every account the same weight.
type FlatProvider struct {
	weight *uint256.Int
}

// NewFlatProvider returns a FlatProvider of the given weight.
func NewFlatProvider(weight uint64) *FlatProvider {
	return &FlatProvider{weight: uint256.NewInt(weight)}
}

// Weight implements Provider.
func (p *FlatProvider) Weight(common.Address) (*uint256.Int, error) {
	return new(uint256.Int).Set(p.weight), nil
}

// BalanceProvider weighs accounts by balance. Balances are loaded from a JSON
// object mapping addresses to amounts, given as decimal strings or 0x hex.
// Accounts that are not listed weigh zero.
type BalanceProvider struct {
	sync.RWMutex
	path     string
	balances map[common.Address]*uint256.Int
	logger   *logrus.Entry
}

// NewBalanceProvider returns an empty BalanceProvider. If path is not empty
// the balances are loaded from it.
func NewBalanceProvider(path string, logger *logrus.Entry) (*BalanceProvider, error) {
	if logger == nil {
		logger = logrus.NewEntry(logrus.New())
	}

	p := &BalanceProvider{
		path:     path,
		balances: make(map[common.Address]*uint256.Int),
		logger:   logger,
	}

	if path != "" {
		if err := p.Reload(); err != nil {
			return nil, err
		}
	}

	return p, nil
}

// Weight implements Provider.
func (p *BalanceProvider) Weight(account common.Address) (*uint256.Int, error) {
	p.RLock()
	defer p.RUnlock()

	b, ok := p.balances[account]
	if !ok {
		return new(uint256.Int), nil
	}
	return new(uint256.Int).Set(b), nil
}

// SetBalance overrides the balance of an account until the next Reload.
func (p *BalanceProvider) SetBalance(account common.Address, balance *uint256.Int) {
	p.Lock()
	defer p.Unlock()
	p.balances[account] = new(uint256.Int).Set(balance)
}

// Reload replaces every balance with the contents of the file. On error the
// previous balances are kept.
func (p *BalanceProvider) Reload() error {
	data, err := os.ReadFile(p.path)
	if err != nil {
		return err
	}

	balances, err := ParseBalances(data)
	if err != nil {
		return fmt.Errorf("%s: %w", p.path, err)
	}

	p.Lock()
	p.balances = balances
	p.Unlock()

	p.logger.WithFields(logrus.Fields{
		"path":     p.path,
		"accounts": len(balances),
	}).Info("Loaded balances")

	return nil
}

// ParseBalances decodes a JSON object of address => amount.
func ParseBalances(data []byte) (map[common.Address]*uint256.Int, error) {
	raw := make(map[string]string)
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	balances := make(map[common.Address]*uint256.Int, len(raw))
	for a, v := range raw {
		addr, err := common.HexToAddress(a)
		if err != nil {
			return nil, fmt.Errorf("account %q: %w", a, err)
		}

		var amount *uint256.Int
		v = strings.TrimSpace(v)
		if strings.HasPrefix(v, "0x") || strings.HasPrefix(v, "0X") {
			amount, err = uint256.FromHex(v)
		} else {
			amount, err = uint256.FromDecimal(v)
		}
		if err != nil {
			return nil, fmt.Errorf("balance of %s: %w", a, err)
		}

		balances[addr] = amount
	}

	return balances, nil
}

package fs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/aretw0/quire/pkg/core"
)

// ordersFile lives in the system directory.
const ordersFile = "sidebar.yaml"

// LoadOrders returns the recorded sidebar order per parent folder.
func (r *Repository) LoadOrders(ctx context.Context) (map[string][]string, error) {
	r.ordersMu.Lock()
	defer r.ordersMu.Unlock()
	return r.loadOrders()
}

// SaveOrder records the order of one folder's children.
func (r *Repository) SaveOrder(ctx context.Context, parent string, keys []string) error {
	if r.config.ReadOnly {
		return core.ErrReadOnly
	}
	r.ordersMu.Lock()
	defer r.ordersMu.Unlock()

	orders, err := r.loadOrders()
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		delete(orders, parent)
	} else {
		orders[parent] = append([]string(nil), keys...)
	}
	data, err := yaml.Marshal(orders)
	if err != nil {
		return err
	}
	path := r.ordersPath()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return writeFileAtomic(path, data, 0644)
}

func (r *Repository) loadOrders() (map[string][]string, error) {
	orders := make(map[string][]string)
	data, err := os.ReadFile(r.ordersPath())
	if os.IsNotExist(err) {
		return orders, nil
	}
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, &orders); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", ordersFile, err)
	}
	if orders == nil {
		orders = make(map[string][]string)
	}
	return orders, nil
}

func (r *Repository) ordersPath() string {
	return filepath.Join(r.Path, r.config.SystemDir, ordersFile)
}

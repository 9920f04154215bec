package sqlite

import (
	"fmt"

	"github.com/mesh-intelligence/nasacl/pkg/types"
)

func tableScope(sw uint32) string { return fmt.Sprintf("table/%d", sw) }

func entryScope(sw uint32, table uint64) string { return fmt.Sprintf("entry/%d/%d", sw, table) }

func counterScope(sw uint32, table uint64) string { return fmt.Sprintf("counter/%d/%d", sw, table) }

// allocID hands out the next free id in 1..max after the last one issued in
// scope, wrapping around to the lowest free id.
func (c *txn) allocID(scope string, max uint64, used func(uint64) (bool, error)) (uint64, error) {
	var last uint64
	err := c.tx.QueryRow("SELECT last_id FROM id_generators WHERE scope = ?", scope).Scan(&last)
	if err != nil && !isNoRows(err) {
		return 0, fmt.Errorf("reading id generator %s: %w", scope, err)
	}
	if last > max {
		last = 0
	}

	for i := uint64(1); i <= max; i++ {
		id := (last+i-1)%max + 1
		taken, err := used(id)
		if err != nil {
			return 0, err
		}
		if taken {
			continue
		}
		if _, err := c.tx.Exec(`INSERT INTO id_generators (scope, last_id) VALUES (?, ?)
			ON CONFLICT(scope) DO UPDATE SET last_id = excluded.last_id`, scope, id); err != nil {
			return 0, fmt.Errorf("updating id generator %s: %w", scope, err)
		}
		c.touch("id_generators")
		return id, nil
	}
	return 0, fmt.Errorf("%s: all %d ids in use: %w", scope, max, types.ErrIDExhausted)
}

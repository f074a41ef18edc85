package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/brickcomplete/brickcomplete-server/internal/domain"
	"github.com/brickcomplete/brickcomplete-server/internal/store"
)

// PersistFetchedSet records an upstream inventory in the catalog so later lookups hit it.
//
// The write is idempotent: reference rows (set, theme, parts, colors, minifigs) are
// inserted only when missing and inventory rows are upserted on their natural keys,
// so repeating it, or racing it against itself, leaves one row per part, color and
// spare flag. A constraint race that still surfaces is reported as store.ErrAlreadyExists.
func (s *Store) PersistFetchedSet(ctx context.Context, f *domain.FetchedSet) error {
	if f == nil || f.Set.SetNumber == "" {
		return store.ErrInvalidInput.WithMessage("fetched set has no set number")
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := insertSet(ctx, tx, f.Set); err != nil {
			return err
		}

		invID, err := ensureInventory(ctx, tx, f.Set.SetNumber)
		if err != nil {
			return err
		}
		if err := upsertPartLines(ctx, tx, invID, f.Parts); err != nil {
			return err
		}

		for _, fig := range f.Minifigs {
			if err := persistMinifig(ctx, tx, invID, fig); err != nil {
				return err
			}
		}
		return nil
	})
	if isUniqueViolation(err) {
		return store.ErrAlreadyExists.WithCause(err)
	}
	if err != nil {
		return fmt.Errorf("persist fetched set %s: %w", f.Set.SetNumber, err)
	}

	s.logger.Debug("persisted fetched set",
		"set_number", f.Set.SetNumber,
		"parts", len(f.Parts),
		"minifigs", len(f.Minifigs),
	)
	return nil
}

func insertSet(ctx context.Context, tx *sql.Tx, m domain.SetMeta) error {
	if m.ThemeID != 0 && m.ThemeName != "" {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO themes (id, name) VALUES (?, ?)
			ON CONFLICT(id) DO NOTHING`, m.ThemeID, m.ThemeName); err != nil {
			return fmt.Errorf("insert theme: %w", err)
		}
	}

	name := m.Name
	if name == "" {
		name = "Set " + m.SetNumber
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO sets (set_num, name, year, theme_id, num_parts, img_url)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(set_num) DO NOTHING`,
		m.SetNumber, name, nullInt(m.Year), nullInt(m.ThemeID), nullInt(m.NumParts), nullString(m.ImageURL),
	)
	if err != nil {
		return fmt.Errorf("insert set: %w", err)
	}
	return nil
}

// ensureInventory returns the lowest-version inventory of owner, creating version 1 if none exists.
func ensureInventory(ctx context.Context, tx *sql.Tx, owner string) (int64, error) {
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO inventories (version, set_num) VALUES (1, ?)
		ON CONFLICT(set_num, version) DO NOTHING`, owner); err != nil {
		return 0, fmt.Errorf("insert inventory: %w", err)
	}

	var id int64
	err := tx.QueryRowContext(ctx, `
		SELECT id FROM inventories WHERE set_num = ? ORDER BY version LIMIT 1`, owner).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("select inventory: %w", err)
	}
	return id, nil
}

func upsertPartLines(ctx context.Context, tx *sql.Tx, inventoryID int64, lines []domain.PartLine) error {
	for _, l := range lines {
		if l.Quantity <= 0 {
			continue
		}

		name := l.PartName
		if name == "" {
			name = l.PartNumber
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO parts (part_num, name) VALUES (?, ?)
			ON CONFLICT(part_num) DO NOTHING`, l.PartNumber, name); err != nil {
			return fmt.Errorf("insert part %s: %w", l.PartNumber, err)
		}

		if l.ColorName != "" {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO colors (id, name, rgb) VALUES (?, ?, ?)
				ON CONFLICT(id) DO NOTHING`, l.ColorID, l.ColorName, nullString(l.ColorRGB)); err != nil {
				return fmt.Errorf("insert color %d: %w", l.ColorID, err)
			}
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO inventory_parts (inventory_id, part_num, color_id, quantity, is_spare, img_url)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(inventory_id, part_num, color_id, is_spare) DO UPDATE SET
				quantity = excluded.quantity,
				img_url = COALESCE(excluded.img_url, inventory_parts.img_url)`,
			inventoryID, l.PartNumber, l.ColorID, l.Quantity, l.IsSpare, nullString(l.ImageURL),
		); err != nil {
			return fmt.Errorf("upsert inventory part %s: %w", l.PartNumber, err)
		}
	}
	return nil
}

func persistMinifig(ctx context.Context, tx *sql.Tx, setInventoryID int64, fig domain.FetchedMinifig) error {
	name := fig.Name
	if name == "" {
		name = fig.Number
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO minifigs (fig_num, name) VALUES (?, ?)
		ON CONFLICT(fig_num) DO NOTHING`, fig.Number, name); err != nil {
		return fmt.Errorf("insert minifig %s: %w", fig.Number, err)
	}

	qty := fig.QuantityInSet
	if qty <= 0 {
		qty = 1
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO inventory_minifigs (inventory_id, fig_num, quantity) VALUES (?, ?, ?)
		ON CONFLICT(inventory_id, fig_num) DO UPDATE SET quantity = excluded.quantity`,
		setInventoryID, fig.Number, qty); err != nil {
		return fmt.Errorf("upsert set minifig %s: %w", fig.Number, err)
	}

	figInvID, err := ensureInventory(ctx, tx, fig.Number)
	if err != nil {
		return err
	}
	return upsertPartLines(ctx, tx, figInvID, fig.Parts)
}

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/brickcomplete/brickcomplete-server/internal/domain"
	"github.com/brickcomplete/brickcomplete-server/internal/store"
)

const (
	elementPhotoURL = "https://cdn.rebrickable.com/media/parts/photos/%s.jpg"
	ldrawImageURL   = "https://cdn.rebrickable.com/media/parts/ldraw/%s.png"
)

// statsTables are the tables counted by Stats.
var statsTables = []string{
	"sets", "themes", "parts", "colors", "inventories",
	"inventory_parts", "elements", "minifigs", "part_categories",
}

// setColumns is the ordered list of columns selected in set queries.
// Must match the scan order in scanSet.
const setColumns = `s.set_num, s.name, COALESCE(s.year, 0), COALESCE(s.theme_id, 0),
	COALESCE(s.num_parts, 0), COALESCE(s.img_url, ''), COALESCE(t.name, '')`

// partLineQuery selects the parts of the lowest-version inventory owned by set_num.
// Minifigure compositions are inventories whose set_num is the fig_num.
const partLineQuery = `
	SELECT ip.part_num, COALESCE(p.name, ip.part_num), ip.color_id,
	       COALESCE(c.name, ''), COALESCE(c.rgb, ''), ip.quantity, ip.is_spare,
	       COALESCE(ip.img_url, ''), COALESCE(pc.name, ''),
	       (SELECT e.element_id FROM elements e
	         WHERE e.part_num = ip.part_num AND e.color_id = ip.color_id
	         ORDER BY e.element_id LIMIT 1)
	FROM inventory_parts ip
	LEFT JOIN parts p ON p.part_num = ip.part_num
	LEFT JOIN colors c ON c.id = ip.color_id
	LEFT JOIN part_categories pc ON pc.id = p.part_cat_id
	WHERE ip.inventory_id = (
		SELECT id FROM inventories WHERE set_num = ? ORDER BY version LIMIT 1
	)
	ORDER BY ip.part_num, ip.color_id, ip.is_spare`

func scanSet(scanner interface{ Scan(dest ...any) error }) (*domain.SetMeta, error) {
	var m domain.SetMeta
	err := scanner.Scan(
		&m.SetNumber,
		&m.Name,
		&m.Year,
		&m.ThemeID,
		&m.NumParts,
		&m.ImageURL,
		&m.ThemeName,
	)
	if err != nil {
		return nil, err
	}
	m.SetURL = domain.SetURL(m.SetNumber)
	return &m, nil
}

func scanSets(rows *sql.Rows) ([]domain.SetMeta, error) {
	defer rows.Close()

	out := []domain.SetMeta{}
	for rows.Next() {
		m, err := scanSet(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

// partImageURL picks the stored image, then the element photo, then the LDraw render.
func partImageURL(stored string, elementID sql.NullString, partNumber string) string {
	switch {
	case stored != "":
		return stored
	case elementID.Valid && elementID.String != "":
		return fmt.Sprintf(elementPhotoURL, elementID.String)
	default:
		return fmt.Sprintf(ldrawImageURL, partNumber)
	}
}

// LookupSet returns set metadata with its theme name.
// Returns store.ErrNotFound if the set is not in the catalog.
func (s *Store) LookupSet(ctx context.Context, setNumber string) (*domain.SetMeta, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+setColumns+`
		FROM sets s
		LEFT JOIN themes t ON t.id = s.theme_id
		WHERE s.set_num = ?`, setNumber)

	m, err := scanSet(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lookup set: %w", err)
	}
	return m, nil
}

// LookupSetParts returns the set-level parts of a set's lowest inventory version.
// Minifigure parts are not included. A set without inventory yields an empty slice.
func (s *Store) LookupSetParts(ctx context.Context, setNumber string) ([]domain.PartLine, error) {
	return s.queryPartLines(ctx, setNumber)
}

// LookupMinifigParts returns the parts of a single copy of a minifigure.
func (s *Store) LookupMinifigParts(ctx context.Context, minifigNumber string) ([]domain.PartLine, error) {
	return s.queryPartLines(ctx, minifigNumber)
}

func (s *Store) queryPartLines(ctx context.Context, owner string) ([]domain.PartLine, error) {
	rows, err := s.db.QueryContext(ctx, partLineQuery, owner)
	if err != nil {
		return nil, fmt.Errorf("query parts of %s: %w", owner, err)
	}
	defer rows.Close()

	lines := []domain.PartLine{}
	for rows.Next() {
		var (
			l         domain.PartLine
			stored    string
			elementID sql.NullString
		)
		if err := rows.Scan(
			&l.PartNumber,
			&l.PartName,
			&l.ColorID,
			&l.ColorName,
			&l.ColorRGB,
			&l.Quantity,
			&l.IsSpare,
			&stored,
			&l.Category,
			&elementID,
		); err != nil {
			return nil, fmt.Errorf("scan part line: %w", err)
		}
		l.ImageURL = partImageURL(stored, elementID, l.PartNumber)
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

// LookupMinifigsInSet returns the minifigures of a set's lowest inventory version
// with how many copies the set contains.
func (s *Store) LookupMinifigsInSet(ctx context.Context, setNumber string) ([]domain.MinifigRef, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT im.fig_num, COALESCE(m.name, im.fig_num), im.quantity
		FROM inventory_minifigs im
		LEFT JOIN minifigs m ON m.fig_num = im.fig_num
		WHERE im.inventory_id = (
			SELECT id FROM inventories WHERE set_num = ? ORDER BY version LIMIT 1
		)
		ORDER BY im.fig_num`, setNumber)
	if err != nil {
		return nil, fmt.Errorf("query minifigs: %w", err)
	}
	defer rows.Close()

	refs := []domain.MinifigRef{}
	for rows.Next() {
		var r domain.MinifigRef
		if err := rows.Scan(&r.Number, &r.Name, &r.QuantityInSet); err != nil {
			return nil, fmt.Errorf("scan minifig: %w", err)
		}
		refs = append(refs, r)
	}
	return refs, rows.Err()
}

// LookupPartImage returns the best image URL for a part in a color.
// It never fails for unknown parts: the LDraw render URL is always a valid answer.
func (s *Store) LookupPartImage(ctx context.Context, partNumber string, colorID int) (string, error) {
	var elementID sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT element_id FROM elements
		WHERE part_num = ? AND color_id = ?
		ORDER BY element_id LIMIT 1`, partNumber, colorID).Scan(&elementID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("lookup element: %w", err)
	}
	return partImageURL("", elementID, partNumber), nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes user text match literally inside a LIKE pattern.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// SearchSets matches text against set numbers and names, newest sets first.
func (s *Store) SearchSets(ctx context.Context, text string, limit int) ([]domain.SetMeta, error) {
	pattern := "%" + escapeLike(text) + "%"
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+setColumns+`
		FROM sets s
		LEFT JOIN themes t ON t.id = s.theme_id
		WHERE s.set_num LIKE ? ESCAPE '\' OR s.name LIKE ? ESCAPE '\'
		ORDER BY s.year DESC, s.name
		LIMIT ?`, pattern, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("search sets: %w", err)
	}
	return scanSets(rows)
}

// SuggestSetNumbers returns sets whose number starts with prefix, ordered by number.
func (s *Store) SuggestSetNumbers(ctx context.Context, prefix string, limit int) ([]domain.SetMeta, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+setColumns+`
		FROM sets s
		LEFT JOIN themes t ON t.id = s.theme_id
		WHERE s.set_num LIKE ? ESCAPE '\'
		ORDER BY s.set_num
		LIMIT ?`, escapeLike(prefix)+"%", limit)
	if err != nil {
		return nil, fmt.Errorf("suggest sets: %w", err)
	}
	return scanSets(rows)
}

// ListSets returns every set in the catalog, ordered by set number.
func (s *Store) ListSets(ctx context.Context) ([]domain.SetMeta, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+setColumns+`
		FROM sets s
		LEFT JOIN themes t ON t.id = s.theme_id
		ORDER BY s.set_num`)
	if err != nil {
		return nil, fmt.Errorf("list sets: %w", err)
	}
	return scanSets(rows)
}

// GetPart returns a part definition with its category name.
func (s *Store) GetPart(ctx context.Context, partNumber string) (*domain.Part, error) {
	var p domain.Part
	err := s.db.QueryRowContext(ctx, `
		SELECT p.part_num, p.name, COALESCE(p.part_cat_id, 0),
		       COALESCE(pc.name, ''), COALESCE(p.part_material, '')
		FROM parts p
		LEFT JOIN part_categories pc ON pc.id = p.part_cat_id
		WHERE p.part_num = ?`, partNumber).Scan(
		&p.PartNumber, &p.Name, &p.CategoryID, &p.Category, &p.Material,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get part: %w", err)
	}
	return &p, nil
}

// GetColor returns a color by ID.
func (s *Store) GetColor(ctx context.Context, colorID int) (*domain.Color, error) {
	var c domain.Color
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, COALESCE(rgb, ''), is_trans
		FROM colors WHERE id = ?`, colorID).Scan(&c.ID, &c.Name, &c.RGB, &c.IsTrans)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get color: %w", err)
	}
	return &c, nil
}

// GetTheme returns a theme by ID.
func (s *Store) GetTheme(ctx context.Context, themeID int) (*domain.Theme, error) {
	var t domain.Theme
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, COALESCE(parent_id, 0)
		FROM themes WHERE id = ?`, themeID).Scan(&t.ID, &t.Name, &t.ParentID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get theme: %w", err)
	}
	return &t, nil
}

// Stats returns row counts of the main catalog tables.
func (s *Store) Stats(ctx context.Context) (domain.CatalogStats, error) {
	stats := make(domain.CatalogStats, len(statsTables))
	for _, table := range statsTables {
		var n int64
		// Table names come from a fixed list.
		if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
			return nil, fmt.Errorf("count %s: %w", table, err)
		}
		stats[table] = n
	}
	return stats, nil
}

// SetCount returns the number of sets in the catalog.
func (s *Store) SetCount(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM sets").Scan(&n); err != nil {
		return 0, fmt.Errorf("count sets: %w", err)
	}
	return n, nil
}

// Copyright 2026 The BioCycling Authors
// SPDX-License-Identifier: Apache-2.0

package efb

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/biocycling/efbcheck/spatial"
)

// CertifiedSite couples a site with its permitted AVV codes, as parsed from
// one certificate annex. It is the unit of seeding.
type CertifiedSite struct {
	Site
	Codes []*WasteCode `json:"codes"`
}

// SiteRepository provides read access to the seeded certification data and
// the bulk replace used by the seeding command. After seeding, everything is
// read-only except SaveCoordinates, which caches geocoding results.
type SiteRepository interface {
	// CreateSchema creates the meta, sites and avv_codes tables.
	CreateSchema() error

	// ReplaceSites wipes the store and loads the given sites and their codes.
	ReplaceSites(sites []*CertifiedSite) error

	// ListSites returns all sites ordered by Ort then Annex.
	ListSites() ([]*Site, error)

	// GetSite returns the full record, or ErrSiteNotFound.
	GetSite(id int) (*Site, error)

	// ListCodes returns the permitted codes of a site ordered by code.
	ListCodes(siteID int) ([]*WasteCode, error)

	// FindCode returns the matching code entry, or nil when the code is not
	// permitted at the site.
	FindCode(siteID int, code string) (*WasteCode, error)

	// CountSites returns the number of sites in the store.
	CountSites() (int, error)

	// CodeCounts returns the number of permitted codes per site id.
	CodeCounts() (map[int]int, error)

	// SaveCoordinates persists geocoded coordinates for a site.
	SaveCoordinates(siteID int, p *spatial.Point) error

	// Meta returns the seed provenance entries.
	Meta() (map[string]string, error)

	// SetMeta stores one provenance entry.
	SetMeta(k, v string) error

	// DB returns the underlying database connection.
	DB() *sql.DB
}

type sqlSiteRepository struct {
	db *sql.DB
}

// NewSiteRepository creates a DuckDB-backed site repository.
func NewSiteRepository(db *sql.DB) (SiteRepository, error) {
	// DuckDB needs to load the spatial extension for POINT_2D
	if _, err := db.Exec(`INSTALL spatial; LOAD spatial;`); err != nil {
		return nil, fmt.Errorf("loading spatial extension: %w", err)
	}

	return &sqlSiteRepository{db: db}, nil
}

// DB returns the underlying database connection for advanced queries.
func (r *sqlSiteRepository) DB() *sql.DB {
	return r.db
}

func (r *sqlSiteRepository) CreateSchema() error {
	_, err := r.db.Exec(`
		CREATE TABLE IF NOT EXISTS meta (
			k VARCHAR PRIMARY KEY,
			v VARCHAR NOT NULL
		);

		CREATE TABLE IF NOT EXISTS sites (
			id INTEGER PRIMARY KEY,
			annex INTEGER NOT NULL,
			pages_start INTEGER,
			pages_end INTEGER,
			bezeichnung VARCHAR,
			strasse VARCHAR,
			plz VARCHAR,
			ort VARCHAR NOT NULL,
			bundesland VARCHAR,
			taetigkeit TEXT,
			point POINT_2D,
			h3_res5 UBIGINT,
			h3_res6 UBIGINT,
			h3_res7 UBIGINT,
			h3_res8 UBIGINT,
			UNIQUE(annex)
		);

		CREATE TABLE IF NOT EXISTS avv_codes (
			site_id INTEGER NOT NULL,
			code VARCHAR NOT NULL,
			text TEXT,
			UNIQUE(site_id, code)
		);
	`)

	return err
}

func (r *sqlSiteRepository) ReplaceSites(sites []*CertifiedSite) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}

	rollback := func(err error) error {
		if rErr := tx.Rollback(); rErr != nil {
			return rErr
		}

		return err
	}

	if _, err := tx.Exec(`DELETE FROM avv_codes`); err != nil {
		return rollback(fmt.Errorf("clearing avv_codes: %w", err))
	}

	if _, err := tx.Exec(`DELETE FROM sites`); err != nil {
		return rollback(fmt.Errorf("clearing sites: %w", err))
	}

	siteStmt, err := tx.Prepare(`
		INSERT INTO sites(
			id, annex, pages_start, pages_end,
			bezeichnung, strasse, plz, ort, bundesland, taetigkeit,
			point, h3_res5, h3_res6, h3_res7, h3_res8
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?,
		        CASE WHEN ? THEN ST_Point(?, ?) END, ?, ?, ?, ?)
	`)
	if err != nil {
		return rollback(err)
	}
	defer siteStmt.Close()

	codeStmt, err := tx.Prepare(`
		INSERT INTO avv_codes(site_id, code, text) VALUES (?, ?, ?)
	`)
	if err != nil {
		return rollback(err)
	}
	defer codeStmt.Close()

	for i, cs := range sites {
		site := &cs.Site
		if site.ID == 0 {
			site.ID = i + 1
		}

		site.Bezeichnung = sanitizeField(site.Bezeichnung, 500)
		site.Strasse = sanitizeField(site.Strasse, 200)
		site.Ort = sanitizeField(site.Ort, 200)
		site.Taetigkeit = sanitizeField(site.Taetigkeit, 4000)

		if err := validateSite(site); err != nil {
			return rollback(fmt.Errorf("site Anlage %d: %w", site.Annex, err))
		}

		if err := site.computeH3(); err != nil {
			return rollback(err)
		}

		var lng, lat float64

		hasPoint := site.Point != nil
		if hasPoint {
			lng, lat = site.Point.Lng, site.Point.Lat
		}

		if _, err := siteStmt.Exec(
			site.ID,
			site.Annex,
			site.PagesStart,
			site.PagesEnd,
			nve(site.Bezeichnung),
			nve(site.Strasse),
			nve(site.PLZ),
			site.Ort,
			nve(site.Bundesland),
			nve(site.Taetigkeit),
			hasPoint,
			lng,
			lat,
			nz(site.H3Res5),
			nz(site.H3Res6),
			nz(site.H3Res7),
			nz(site.H3Res8),
		); err != nil {
			return rollback(fmt.Errorf("inserting site Anlage %d: %w", site.Annex, err))
		}

		// The certificate occasionally repeats a code across pages. The
		// first occurrence wins, matching the seeding of the source data.
		seen := make(map[string]bool, len(cs.Codes))

		for _, c := range cs.Codes {
			code, err := NormalizeAVV(c.Code)
			if err != nil {
				return rollback(fmt.Errorf("site Anlage %d: code %q: %w", site.Annex, c.Code, err))
			}

			if seen[code] {
				continue
			}

			seen[code] = true

			if _, err := codeStmt.Exec(site.ID, code, nve(c.Text)); err != nil {
				return rollback(fmt.Errorf("inserting code %s: %w", code, err))
			}
		}
	}

	return tx.Commit()
}

// nve maps empty strings to NULL.
func nve(v string) any {
	if v == "" {
		return nil
	}

	return v
}

// nz maps zero H3 cells to NULL.
func nz(v int64) any {
	if v == 0 {
		return nil
	}

	return v
}

var siteSelect = `
	SELECT id, annex, pages_start, pages_end,
	       bezeichnung, strasse, plz, ort, bundesland, taetigkeit,
	       point, h3_res5, h3_res6, h3_res7, h3_res8
	FROM sites
`

func scanSite(scan func(dest ...any) error) (*Site, error) {
	site := &Site{}

	var pagesStart, pagesEnd sql.NullInt64

	var bezeichnung, strasse, plz, land, taetigkeit sql.NullString

	var point spatial.Point

	var pointRaw any

	var h3Res5, h3Res6, h3Res7, h3Res8 sql.NullInt64

	err := scan(
		&site.ID,
		&site.Annex,
		&pagesStart,
		&pagesEnd,
		&bezeichnung,
		&strasse,
		&plz,
		&site.Ort,
		&land,
		&taetigkeit,
		&pointRaw,
		&h3Res5,
		&h3Res6,
		&h3Res7,
		&h3Res8,
	)
	if err != nil {
		return nil, err
	}

	site.PagesStart = int(pagesStart.Int64)
	site.PagesEnd = int(pagesEnd.Int64)
	site.Bezeichnung = bezeichnung.String
	site.Strasse = strasse.String
	site.PLZ = plz.String
	site.Bundesland = land.String
	site.Taetigkeit = taetigkeit.String

	if pointRaw != nil {
		if err := point.Scan(pointRaw); err != nil {
			return nil, fmt.Errorf("scanning point of site %d: %w", site.ID, err)
		}

		site.Point = &point
	}

	site.H3Res5 = h3Res5.Int64
	site.H3Res6 = h3Res6.Int64
	site.H3Res7 = h3Res7.Int64
	site.H3Res8 = h3Res8.Int64

	return site, nil
}

func (r *sqlSiteRepository) ListSites() ([]*Site, error) {
	rows, err := r.db.Query(siteSelect + ` ORDER BY ort, annex`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sites []*Site

	for rows.Next() {
		site, err := scanSite(rows.Scan)
		if err != nil {
			return nil, err
		}

		sites = append(sites, site)
	}

	return sites, rows.Err()
}

func (r *sqlSiteRepository) GetSite(id int) (*Site, error) {
	row := r.db.QueryRow(siteSelect+` WHERE id = ?`, id)

	site, err := scanSite(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("site %d: %w", id, ErrSiteNotFound)
	}

	return site, err
}

func (r *sqlSiteRepository) ListCodes(siteID int) ([]*WasteCode, error) {
	rows, err := r.db.Query(`
		SELECT code, text FROM avv_codes WHERE site_id = ? ORDER BY code
	`, siteID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var codes []*WasteCode

	for rows.Next() {
		c := &WasteCode{}

		var text sql.NullString
		if err := rows.Scan(&c.Code, &text); err != nil {
			return nil, err
		}

		c.Text = text.String
		codes = append(codes, c)
	}

	return codes, rows.Err()
}

func (r *sqlSiteRepository) FindCode(siteID int, code string) (*WasteCode, error) {
	c := &WasteCode{}

	var text sql.NullString

	err := r.db.QueryRow(`
		SELECT code, text FROM avv_codes WHERE site_id = ? AND code = ? LIMIT 1
	`, siteID, code).Scan(&c.Code, &text)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}

	c.Text = text.String

	return c, nil
}

func (r *sqlSiteRepository) CountSites() (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM sites`).Scan(&count)

	return count, err
}

func (r *sqlSiteRepository) CodeCounts() (map[int]int, error) {
	rows, err := r.db.Query(`
		SELECT site_id, COUNT(*) FROM avv_codes GROUP BY site_id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[int]int)

	for rows.Next() {
		var siteID, count int
		if err := rows.Scan(&siteID, &count); err != nil {
			return nil, err
		}

		counts[siteID] = count
	}

	return counts, rows.Err()
}

func (r *sqlSiteRepository) SaveCoordinates(siteID int, p *spatial.Point) error {
	if p == nil {
		return errors.New("point can't be nil")
	}

	if err := validateCoordinates(p.Lat, p.Lng); err != nil {
		return err
	}

	site := &Site{Point: p}
	if err := site.computeH3(); err != nil {
		return err
	}

	res, err := r.db.Exec(`
		UPDATE sites
		SET point = ST_Point(?, ?),
		    h3_res5 = ?, h3_res6 = ?, h3_res7 = ?, h3_res8 = ?
		WHERE id = ?
	`,
		p.Lng,
		p.Lat,
		site.H3Res5,
		site.H3Res6,
		site.H3Res7,
		site.H3Res8,
		siteID,
	)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}

	if affected == 0 {
		return fmt.Errorf("site %d: %w", siteID, ErrSiteNotFound)
	}

	return nil
}

func (r *sqlSiteRepository) Meta() (map[string]string, error) {
	rows, err := r.db.Query(`SELECT k, v FROM meta`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	meta := make(map[string]string)

	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}

		meta[k] = v
	}

	return meta, rows.Err()
}

func (r *sqlSiteRepository) SetMeta(k, v string) error {
	_, err := r.db.Exec(`
		INSERT INTO meta(k, v) VALUES (?, ?)
		ON CONFLICT (k) DO UPDATE SET v = excluded.v
	`, k, v)

	return err
}

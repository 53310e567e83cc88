// Copyright 2021 gorse Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package storage

import (
	"database/sql"
	"net/url"
	"strings"

	"github.com/juju/errors"
	"github.com/samber/lo"
	_ "modernc.org/sqlite"

	"github.com/gorse-io/userknn/model/ranking"
)

const SQLitePrefix = "sqlite://"

// AppendURLParams appends query parameters to the data source name.
func AppendURLParams(rawURL string, params []lo.Tuple2[string, string]) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", errors.Trace(err)
	}
	q := parsed.Query()
	for _, tuple := range params {
		q.Add(tuple.A, tuple.B)
	}
	parsed.RawQuery = q.Encode()
	return parsed.String(), nil
}

// Database persists rankings in SQLite. Rows are replaced as a whole on every
// save so that the table always mirrors the latest ranking.
type Database struct {
	db *sql.DB
}

// Open a connection to a database. The only supported scheme is sqlite://.
func Open(path string) (*Database, error) {
	if !strings.HasPrefix(path, SQLitePrefix) {
		return nil, errors.Errorf("unknown database: %s", path)
	}
	dataSourceName, err := AppendURLParams(path[len(SQLitePrefix):], []lo.Tuple2[string, string]{
		{A: "_pragma", B: "busy_timeout(10000)"},
		{A: "_pragma", B: "journal_mode(wal)"},
	})
	if err != nil {
		return nil, errors.Trace(err)
	}
	database := new(Database)
	if database.db, err = sql.Open("sqlite", dataSourceName); err != nil {
		return nil, errors.Trace(err)
	}
	return database, nil
}

func (d *Database) Close() error {
	return d.db.Close()
}

func (d *Database) Init() error {
	_, err := d.db.Exec(`
CREATE TABLE IF NOT EXISTS rankings (
	user_id TEXT NOT NULL,
	item_id TEXT NOT NULL,
	score REAL NOT NULL,
	position INTEGER NOT NULL,
	PRIMARY KEY (user_id, item_id)
);`)
	return errors.Trace(err)
}

// SaveRanking replaces the stored ranking. The position column keeps the
// per-user order of the recommendations, ties included.
func (d *Database) SaveRanking(recommendations []ranking.Recommendation) error {
	tx, err := d.db.Begin()
	if err != nil {
		return errors.Trace(err)
	}
	if _, err = tx.Exec("DELETE FROM rankings"); err != nil {
		_ = tx.Rollback()
		return errors.Trace(err)
	}
	positions := make(map[string]int)
	for _, recommendation := range recommendations {
		if _, err = tx.Exec(`
INSERT INTO rankings (user_id, item_id, score, position) VALUES (?, ?, ?, ?)
`, recommendation.UserId, recommendation.ItemId, recommendation.Score, positions[recommendation.UserId]); err != nil {
			_ = tx.Rollback()
			return errors.Trace(err)
		}
		positions[recommendation.UserId]++
	}
	return errors.Trace(tx.Commit())
}

// GetRanking reads the stored ranking of a user in its original order.
func (d *Database) GetRanking(userId string) ([]ranking.Recommendation, error) {
	rs, err := d.db.Query(`
SELECT user_id, item_id, score FROM rankings WHERE user_id = ? ORDER BY position
`, userId)
	if err != nil {
		return nil, errors.Trace(err)
	}
	defer rs.Close()
	var recommendations []ranking.Recommendation
	for rs.Next() {
		var recommendation ranking.Recommendation
		var score float64
		if err = rs.Scan(&recommendation.UserId, &recommendation.ItemId, &score); err != nil {
			return nil, errors.Trace(err)
		}
		recommendation.Score = float32(score)
		recommendations = append(recommendations, recommendation)
	}
	return recommendations, errors.Trace(rs.Err())
}

// CountRanking returns the number of stored rows.
func (d *Database) CountRanking() (int, error) {
	var count int
	err := d.db.QueryRow("SELECT COUNT(*) FROM rankings").Scan(&count)
	return count, errors.Trace(err)
}

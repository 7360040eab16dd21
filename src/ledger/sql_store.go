package ledger

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	_ "github.com/go-sql-driver/mysql" // mysql driver
	"github.com/holiman/uint256"
	"github.com/mosaicnetworks/attest/src/common"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite" // sqlite driver
)

const (
	// SQLite selects the pure-Go SQLite driver. The dsn is a file path.
	SQLite = "sqlite"
	// MySQL selects the MySQL driver. The dsn follows go-sql-driver/mysql.
	MySQL = "mysql"

	sqliteBusyTimeoutMs = 5000
)

var sqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS ledger_state (
		id INTEGER PRIMARY KEY,
		owner VARCHAR(42) NOT NULL,
		open_flag INTEGER NOT NULL,
		next_message_id BIGINT NOT NULL,
		next_event_seq BIGINT NOT NULL,
		last_block BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS messages (
		id BIGINT PRIMARY KEY,
		signer VARCHAR(42) NOT NULL,
		body TEXT NOT NULL,
		signature VARCHAR(256) NOT NULL,
		origin_block BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS votes (
		message_id BIGINT NOT NULL,
		voter VARCHAR(42) NOT NULL,
		support INTEGER NOT NULL,
		weight VARCHAR(80) NOT NULL,
		PRIMARY KEY (message_id, voter)
	)`,
	`CREATE TABLE IF NOT EXISTS tallies (
		message_id BIGINT PRIMARY KEY,
		for_votes VARCHAR(80) NOT NULL,
		against_votes VARCHAR(80) NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS events (
		seq BIGINT PRIMARY KEY,
		data TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS receipts (
		tx_hash VARCHAR(128) PRIMARY KEY,
		data TEXT NOT NULL
	)`,
}

// SQLStore implements the Store interface on a SQL database, either SQLite
// or MySQL. A changeset is applied in a single SQL transaction.
type SQLStore struct {
	db     *sql.DB
	driver string
	path   string
	logger *logrus.Entry
}

// NewSQLStore opens the database and creates the tables if needed.
func NewSQLStore(driver, dsn string, logger *logrus.Entry) (*SQLStore, error) {
	if logger == nil {
		logger = logrus.NewEntry(logrus.New())
	}

	var (
		db   *sql.DB
		path string
		err  error
	)

	switch driver {
	case SQLite:
		if dsn != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(dsn), 0700); err != nil {
				return nil, fmt.Errorf("create db directory: %w", err)
			}
			path = dsn
		}
		db, err = sql.Open("sqlite", dsn)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		// one connection serialises writers and keeps :memory: databases alive
		db.SetMaxOpenConns(1)
		if _, err := db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d", sqliteBusyTimeoutMs)); err != nil {
			db.Close()
			return nil, fmt.Errorf("set busy timeout: %w", err)
		}
	case MySQL:
		db, err = sql.Open("mysql", dsn)
		if err != nil {
			return nil, fmt.Errorf("open mysql: %w", err)
		}
		db.SetMaxOpenConns(20)
		db.SetMaxIdleConns(10)
	default:
		return nil, fmt.Errorf("unknown sql driver %q", driver)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}

	for _, stmt := range sqlSchema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("create schema: %w", err)
		}
	}

	logger.WithFields(logrus.Fields{
		"driver": driver,
		"path":   path,
	}).Debug("Opened SQL store")

	return &SQLStore{
		db:     db,
		driver: driver,
		path:   path,
		logger: logger,
	}, nil
}

// GetState implements the Store interface.
func (s *SQLStore) GetState() (State, error) {
	state, err := scanState(s.db.QueryRow(selectState))
	if err == sql.ErrNoRows {
		return State{}, common.NewStoreErr("State", common.Empty, "state")
	}
	if err != nil {
		return State{}, err
	}
	return *state, nil
}

// GetMessage implements the Store interface.
func (s *SQLStore) GetMessage(id uint64) (*Message, error) {
	var (
		signer, sigHex string
		m              = &Message{ID: id}
	)

	err := s.db.QueryRow(
		`SELECT signer, body, signature, origin_block FROM messages WHERE id = ?`, id,
	).Scan(&signer, &m.Text, &sigHex, &m.OriginBlock)
	if err != nil {
		return nil, mapSQLError(err, "Message", strconv.FormatUint(id, 10))
	}

	if m.Signer, err = common.HexToAddress(signer); err != nil {
		return nil, err
	}
	if m.Signature, err = common.DecodeFromString(sigHex); err != nil {
		return nil, err
	}

	return m, nil
}

// GetVote implements the Store interface.
func (s *SQLStore) GetVote(id uint64, voter common.Address) (*VoteRecord, error) {
	var (
		support int
		weight  string
	)

	err := s.db.QueryRow(
		`SELECT support, weight FROM votes WHERE message_id = ? AND voter = ?`, id, voter.Hex(),
	).Scan(&support, &weight)
	if err != nil {
		return nil, mapSQLError(err, "Vote", voteKeyString(id, voter))
	}

	w, err := uint256.FromDecimal(weight)
	if err != nil {
		return nil, err
	}

	return &VoteRecord{
		MessageID: id,
		Voter:     voter,
		Support:   support != 0,
		Weight:    w,
	}, nil
}

// GetTally implements the Store interface.
func (s *SQLStore) GetTally(id uint64) (*Tally, error) {
	var forVotes, againstVotes string

	err := s.db.QueryRow(
		`SELECT for_votes, against_votes FROM tallies WHERE message_id = ?`, id,
	).Scan(&forVotes, &againstVotes)
	if err != nil {
		return nil, mapSQLError(err, "Tally", strconv.FormatUint(id, 10))
	}

	t := &Tally{MessageID: id}
	if t.For, err = uint256.FromDecimal(forVotes); err != nil {
		return nil, err
	}
	if t.Against, err = uint256.FromDecimal(againstVotes); err != nil {
		return nil, err
	}
	return t, nil
}

// GetEvents implements the Store interface.
func (s *SQLStore) GetEvents(from uint64, limit int) ([]*Event, error) {
	query := `SELECT data FROM events WHERE seq >= ? ORDER BY seq`
	args := []interface{}{from}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	res := []*Event{}
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		e := new(Event)
		if err := e.Unmarshal([]byte(data)); err != nil {
			return nil, err
		}
		res = append(res, e)
	}

	return res, rows.Err()
}

// GetReceipt implements the Store interface.
func (s *SQLStore) GetReceipt(txHash string) (*Receipt, error) {
	var data string

	err := s.db.QueryRow(`SELECT data FROM receipts WHERE tx_hash = ?`, txHash).Scan(&data)
	if err != nil {
		return nil, mapSQLError(err, "Receipt", txHash)
	}

	r := new(Receipt)
	if err := r.Unmarshal([]byte(data)); err != nil {
		return nil, err
	}
	return r, nil
}

// Commit implements the Store interface.
func (s *SQLStore) Commit(cs *Changeset) (err error) {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				s.logger.WithError(rbErr).Error("Rollback failed")
			}
		}
	}()

	current, err := scanState(tx.QueryRow(selectState))
	if err == sql.ErrNoRows {
		current, err = nil, nil
	}
	if err != nil {
		return err
	}

	if err = checkBase(cs, current); err != nil {
		return err
	}

	if err = s.txSetState(tx, current == nil, &cs.State); err != nil {
		return err
	}

	if m := cs.Message; m != nil {
		if err = s.txCheckAbsent(tx, "Message", strconv.FormatUint(m.ID, 10),
			`SELECT 1 FROM messages WHERE id = ?`, m.ID); err != nil {
			return err
		}
		if _, err = tx.Exec(
			`INSERT INTO messages (id, signer, body, signature, origin_block) VALUES (?, ?, ?, ?, ?)`,
			m.ID, m.Signer.Hex(), m.Text, common.EncodeToString(m.Signature), m.OriginBlock,
		); err != nil {
			return err
		}
	}

	if v := cs.Vote; v != nil {
		if err = s.txCheckAbsent(tx, "Vote", voteKeyString(v.MessageID, v.Voter),
			`SELECT 1 FROM votes WHERE message_id = ? AND voter = ?`, v.MessageID, v.Voter.Hex()); err != nil {
			return err
		}
		if _, err = tx.Exec(
			`INSERT INTO votes (message_id, voter, support, weight) VALUES (?, ?, ?, ?)`,
			v.MessageID, v.Voter.Hex(), boolToInt(v.Support), v.Weight.Dec(),
		); err != nil {
			return err
		}
	}

	if t := cs.Tally; t != nil {
		if _, err = tx.Exec(`DELETE FROM tallies WHERE message_id = ?`, t.MessageID); err != nil {
			return err
		}
		if _, err = tx.Exec(
			`INSERT INTO tallies (message_id, for_votes, against_votes) VALUES (?, ?, ?)`,
			t.MessageID, t.For.Dec(), t.Against.Dec(),
		); err != nil {
			return err
		}
	}

	for _, e := range cs.Events {
		if err = s.txCheckAbsent(tx, "Event", strconv.FormatUint(e.Seq, 10),
			`SELECT 1 FROM events WHERE seq = ?`, e.Seq); err != nil {
			return err
		}
		var data []byte
		if data, err = e.Marshal(); err != nil {
			return err
		}
		if _, err = tx.Exec(`INSERT INTO events (seq, data) VALUES (?, ?)`, e.Seq, string(data)); err != nil {
			return err
		}
	}

	if r := cs.Receipt; r != nil {
		if err = s.txCheckAbsent(tx, "Receipt", r.TxHash,
			`SELECT 1 FROM receipts WHERE tx_hash = ?`, r.TxHash); err != nil {
			return err
		}
		var data []byte
		if data, err = r.Marshal(); err != nil {
			return err
		}
		if _, err = tx.Exec(`INSERT INTO receipts (tx_hash, data) VALUES (?, ?)`, r.TxHash, string(data)); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// Close implements the Store interface.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// StorePath implements the Store interface. It is empty for MySQL and for
// in-memory SQLite databases.
func (s *SQLStore) StorePath() string {
	return s.path
}

//++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++
//SQL helpers

const selectState = `SELECT owner, open_flag, next_message_id, next_event_seq, last_block
	FROM ledger_state WHERE id = 1`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanState(row rowScanner) (*State, error) {
	var (
		owner string
		open  int
		state State
	)

	if err := row.Scan(&owner, &open, &state.NextMessageID, &state.NextEventSeq, &state.LastBlock); err != nil {
		return nil, err
	}

	addr, err := common.HexToAddress(owner)
	if err != nil {
		return nil, err
	}
	state.Owner = addr
	state.Open = open != 0

	return &state, nil
}

func (s *SQLStore) txSetState(tx *sql.Tx, insert bool, state *State) error {
	if insert {
		_, err := tx.Exec(
			`INSERT INTO ledger_state (id, owner, open_flag, next_message_id, next_event_seq, last_block)
			VALUES (1, ?, ?, ?, ?, ?)`,
			state.Owner.Hex(), boolToInt(state.Open), state.NextMessageID, state.NextEventSeq, state.LastBlock,
		)
		return err
	}

	_, err := tx.Exec(
		`UPDATE ledger_state SET owner = ?, open_flag = ?, next_message_id = ?, next_event_seq = ?, last_block = ?
		WHERE id = 1`,
		state.Owner.Hex(), boolToInt(state.Open), state.NextMessageID, state.NextEventSeq, state.LastBlock,
	)
	return err
}

func (s *SQLStore) txCheckAbsent(tx *sql.Tx, name, key, query string, args ...interface{}) error {
	var one int
	err := tx.QueryRow(query, args...).Scan(&one)
	switch {
	case err == nil:
		return common.NewStoreErr(name, common.KeyAlreadyExists, key)
	case errors.Is(err, sql.ErrNoRows):
		return nil
	default:
		return err
	}
}

func mapSQLError(err error, name, key string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return common.NewStoreErr(name, common.KeyNotFound, key)
	}
	return err
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// IsSQLDriver reports whether name is a supported SQL driver.
func IsSQLDriver(name string) bool {
	switch strings.ToLower(name) {
	case SQLite, MySQL:
		return true
	}
	return false
}

package db

import (
	"context"
	"database/sql"
	"log"
	"sync"
	"time"

	"github.com/distsocial/streamnode/domain"
	"github.com/distsocial/streamnode/util"
	"modernc.org/sqlite"
	sqlitelib "modernc.org/sqlite/lib"
)

// DB is the database struct.
type DB struct {
	db *sql.DB
}

var (
	dbInstance *DB
	dbOnce     sync.Once
)

const (
	//Authors
	sqlCreateAuthorsTable = `CREATE TABLE IF NOT EXISTS authors(
                        id varchar(500) NOT NULL PRIMARY KEY,
                        username varchar(100) UNIQUE NOT NULL,
                        display_name varchar(256),
                        host varchar(500),
                        github varchar(500) default '',
                        bio text default '',
                        password_hash varchar(100),
                        created_at timestamp default current_timestamp
                        )`
	sqlInsertAuthor           = `INSERT INTO authors(id, username, display_name, host, github, bio, password_hash, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	sqlSelectAuthorById       = `SELECT id, username, display_name, host, github, bio, password_hash, created_at FROM authors WHERE id IN (?, ?)`
	sqlSelectAuthorByUsername = `SELECT id, username, display_name, host, github, bio, password_hash, created_at FROM authors WHERE username = ?`
	sqlUpdateAuthorProfile    = `UPDATE authors SET display_name = ?, github = ?, bio = ? WHERE id = ?`

	//Follows
	sqlCreateFollowsTable = `CREATE TABLE IF NOT EXISTS follows(
                        author_id varchar(500) NOT NULL,
                        friend_id varchar(500) NOT NULL,
                        display_name varchar(256) default '',
                        created_at timestamp default current_timestamp,
                        PRIMARY KEY(author_id, friend_id)
                        )`
	sqlInsertFollow          = `INSERT INTO follows(author_id, friend_id, display_name, created_at) VALUES (?, ?, ?, ?)`
	sqlDeleteFollow          = `DELETE FROM follows WHERE author_id IN (?, ?) AND friend_id IN (?, ?)`
	sqlSelectFollowsByAuthor = `SELECT author_id, friend_id, display_name, created_at FROM follows WHERE author_id IN (?, ?) ORDER BY created_at ASC`
	sqlCountFollow           = `SELECT count(*) FROM follows WHERE author_id IN (?, ?) AND friend_id IN (?, ?)`

	//Friend requests
	sqlCreateFriendRequestsTable = `CREATE TABLE IF NOT EXISTS friend_requests(
                        requester_id varchar(500) NOT NULL,
                        requestee_id varchar(500) NOT NULL,
                        created_at timestamp default current_timestamp,
                        PRIMARY KEY(requester_id, requestee_id)
                        )`
	sqlInsertFriendRequest            = `INSERT INTO friend_requests(requester_id, requestee_id, created_at) VALUES (?, ?, ?)`
	sqlSelectFriendRequest            = `SELECT requester_id, requestee_id, created_at FROM friend_requests WHERE requester_id IN (?, ?) AND requestee_id IN (?, ?)`
	sqlDeleteFriendRequest            = `DELETE FROM friend_requests WHERE requester_id IN (?, ?) AND requestee_id IN (?, ?)`
	sqlSelectFriendRequestsByRequestee = `SELECT requester_id, requestee_id, created_at FROM friend_requests WHERE requestee_id IN (?, ?) ORDER BY created_at ASC`
)

// Open opens a database at the given path and runs the schema setup.
// Use ":memory:" for tests.
func Open(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if path == ":memory:" {
		// Every sqlite connection gets its own in-memory database, so
		// the pool must stay at a single connection.
		sqlDB.SetMaxOpenConns(1)
	} else {
		// Configure connection pool for concurrent access
		sqlDB.SetMaxOpenConns(25)
		sqlDB.SetMaxIdleConns(5)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	sqlDB.Exec("PRAGMA journal_mode = WAL")
	sqlDB.Exec("PRAGMA synchronous = NORMAL")
	sqlDB.Exec("PRAGMA busy_timeout = 5000")
	sqlDB.Exec("PRAGMA foreign_keys = ON")

	db := &DB{db: sqlDB}

	if err := db.CreateDB(); err != nil {
		return nil, err
	}

	return db, nil
}

func GetDB() *DB {
	dbOnce.Do(func() {
		db, err := Open("database.db")
		if err != nil {
			panic(err)
		}
		log.Printf("Database initialized with connection pooling (max 25 connections)")
		dbInstance = db
	})

	return dbInstance
}

func (db *DB) Close() error {
	return db.db.Close()
}

// CreateDB creates the database schema.
func (db *DB) CreateDB() error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		for _, stmt := range []string{
			sqlCreateAuthorsTable,
			sqlCreateFollowsTable,
			sqlCreateFriendRequestsTable,
			sqlCreatePostsTable,
			sqlCreateCategoriesTable,
			sqlCreateCanSeeTable,
			sqlCreateCommentsTable,
			sqlCreateRemoteCommentAuthorsTable,
		} {
			if _, err := tx.Exec(stmt); err != nil {
				return err
			}
		}
		return nil
	})
}

// wrapTransaction runs the given function within a transaction.
func (db *DB) wrapTransaction(f func(tx *sql.Tx) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()
	tx, err := db.db.BeginTx(ctx, nil)
	if err != nil {
		log.Printf("error starting transaction: %s", err)
		return err
	}
	for {
		err = f(tx)
		if err != nil {
			serr, ok := err.(*sqlite.Error)
			if ok && serr.Code() == sqlitelib.SQLITE_BUSY {
				continue
			}
			tx.Rollback()
			return err
		}
		err = tx.Commit()
		if err != nil {
			log.Printf("error committing transaction: %s", err)
			return err
		}
		break
	}
	return nil
}

func variants(uri string) (string, string) {
	v := util.SchemeVariants(uri)
	if len(v) != 2 {
		return uri, uri
	}
	return v[0], v[1]
}

func (db *DB) CreateAuthor(a *domain.Author) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlInsertAuthor,
			util.NormalizeURI(a.Id),
			a.Username,
			a.DisplayName,
			a.Host,
			a.Github,
			a.Bio,
			a.PasswordHash,
			a.CreatedAt,
		)
		return err
	})
}

// FindAuthorById looks a local author up by URI, matching either scheme
// form. Returns (nil, nil) when no such author exists.
func (db *DB) FindAuthorById(id string) (error, *domain.Author) {
	v1, v2 := variants(id)
	row := db.db.QueryRow(sqlSelectAuthorById, v1, v2)
	var a domain.Author
	err := row.Scan(&a.Id, &a.Username, &a.DisplayName, &a.Host, &a.Github, &a.Bio, &a.PasswordHash, &a.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return err, nil
	}
	return nil, &a
}

func (db *DB) FindAuthorByUsername(username string) (error, *domain.Author) {
	row := db.db.QueryRow(sqlSelectAuthorByUsername, username)
	var a domain.Author
	err := row.Scan(&a.Id, &a.Username, &a.DisplayName, &a.Host, &a.Github, &a.Bio, &a.PasswordHash, &a.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return err, nil
	}
	return nil, &a
}

func (db *DB) UpdateAuthorProfile(a *domain.Author) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlUpdateAuthorProfile, a.DisplayName, a.Github, a.Bio, util.NormalizeURI(a.Id))
		return err
	})
}

func (db *DB) CreateFollow(f *domain.Follow) error {
	createdAt := f.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlInsertFollow,
			util.NormalizeURI(f.AuthorId),
			util.NormalizeURI(f.FriendId),
			f.DisplayName,
			createdAt,
		)
		return err
	})
}

func (db *DB) DeleteFollow(authorId, friendId string) error {
	a1, a2 := variants(authorId)
	f1, f2 := variants(friendId)
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlDeleteFollow, a1, a2, f1, f2)
		return err
	})
}

func (db *DB) ReadFollowsByAuthor(authorId string) (error, *[]domain.Follow) {
	a1, a2 := variants(authorId)
	rows, err := db.db.Query(sqlSelectFollowsByAuthor, a1, a2)
	if err != nil {
		return err, nil
	}
	defer rows.Close()

	var follows []domain.Follow

	for rows.Next() {
		var f domain.Follow
		if err := rows.Scan(&f.AuthorId, &f.FriendId, &f.DisplayName, &f.CreatedAt); err != nil {
			return err, &follows
		}
		follows = append(follows, f)
	}
	if err = rows.Err(); err != nil {
		return err, &follows
	}

	return nil, &follows
}

// FollowExists reports whether authorId follows friendId, comparing both
// http and https forms of either URI.
func (db *DB) FollowExists(authorId, friendId string) (error, bool) {
	a1, a2 := variants(authorId)
	f1, f2 := variants(friendId)
	var count int
	err := db.db.QueryRow(sqlCountFollow, a1, a2, f1, f2).Scan(&count)
	if err != nil {
		return err, false
	}
	return nil, count > 0
}

func (db *DB) CreateFriendRequest(fr *domain.FriendRequest) error {
	createdAt := fr.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlInsertFriendRequest,
			util.NormalizeURI(fr.RequesterId),
			util.NormalizeURI(fr.RequesteeId),
			createdAt,
		)
		return err
	})
}

// RecordFriendRequest writes the requester's follow edge and the pending
// request row in one transaction, so a failed request insert never
// leaves an orphan follow behind.
func (db *DB) RecordFriendRequest(f *domain.Follow, fr *domain.FriendRequest) error {
	followCreated := f.CreatedAt
	if followCreated.IsZero() {
		followCreated = time.Now()
	}
	requestCreated := fr.CreatedAt
	if requestCreated.IsZero() {
		requestCreated = time.Now()
	}
	return db.wrapTransaction(func(tx *sql.Tx) error {
		if _, err := tx.Exec(sqlInsertFollow,
			util.NormalizeURI(f.AuthorId),
			util.NormalizeURI(f.FriendId),
			f.DisplayName,
			followCreated,
		); err != nil {
			return err
		}
		_, err := tx.Exec(sqlInsertFriendRequest,
			util.NormalizeURI(fr.RequesterId),
			util.NormalizeURI(fr.RequesteeId),
			requestCreated,
		)
		return err
	})
}

// FindFriendRequest returns the pending request for the ordered pair, or
// (nil, nil) when none is pending.
func (db *DB) FindFriendRequest(requesterId, requesteeId string) (error, *domain.FriendRequest) {
	r1, r2 := variants(requesterId)
	e1, e2 := variants(requesteeId)
	row := db.db.QueryRow(sqlSelectFriendRequest, r1, r2, e1, e2)
	var fr domain.FriendRequest
	err := row.Scan(&fr.RequesterId, &fr.RequesteeId, &fr.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return err, nil
	}
	return nil, &fr
}

func (db *DB) DeleteFriendRequest(requesterId, requesteeId string) error {
	r1, r2 := variants(requesterId)
	e1, e2 := variants(requesteeId)
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlDeleteFriendRequest, r1, r2, e1, e2)
		return err
	})
}

func (db *DB) ReadFriendRequestsByRequestee(requesteeId string) (error, *[]domain.FriendRequest) {
	e1, e2 := variants(requesteeId)
	rows, err := db.db.Query(sqlSelectFriendRequestsByRequestee, e1, e2)
	if err != nil {
		return err, nil
	}
	defer rows.Close()

	var requests []domain.FriendRequest

	for rows.Next() {
		var fr domain.FriendRequest
		if err := rows.Scan(&fr.RequesterId, &fr.RequesteeId, &fr.CreatedAt); err != nil {
			return err, &requests
		}
		requests = append(requests, fr)
	}
	if err = rows.Err(); err != nil {
		return err, &requests
	}

	return nil, &requests
}

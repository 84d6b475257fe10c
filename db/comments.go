package db

import (
	"database/sql"
	"time"

	"github.com/distsocial/streamnode/domain"
	"github.com/distsocial/streamnode/util"
	"github.com/google/uuid"
)

const (
	sqlCreateCommentsTable = `CREATE TABLE IF NOT EXISTS comments(
                        id uuid NOT NULL PRIMARY KEY,
                        post_id varchar(500) NOT NULL,
                        author_id varchar(500) NOT NULL,
                        comment text,
                        content_type varchar(64),
                        published timestamp default current_timestamp
                        )`
	sqlCreateRemoteCommentAuthorsTable = `CREATE TABLE IF NOT EXISTS remote_comment_authors(
                        author_id varchar(500) NOT NULL PRIMARY KEY,
                        host varchar(500),
                        display_name varchar(256),
                        github varchar(500) default ''
                        )`

	sqlInsertComment        = `INSERT INTO comments(id, post_id, author_id, comment, content_type, published) VALUES (?, ?, ?, ?, ?, ?)`
	sqlSelectCommentsByPost = `SELECT id, post_id, author_id, comment, content_type, published FROM comments
                                                            WHERE post_id IN (?, ?)
                                                            ORDER BY published ASC`

	sqlUpsertRemoteCommentAuthor = `INSERT INTO remote_comment_authors(author_id, host, display_name, github) VALUES (?, ?, ?, ?)
                                                            ON CONFLICT(author_id) DO UPDATE SET host = excluded.host, display_name = excluded.display_name, github = excluded.github`
	sqlSelectRemoteCommentAuthor = `SELECT author_id, host, display_name, github FROM remote_comment_authors WHERE author_id IN (?, ?)`
)

func (db *DB) CreateComment(c *domain.Comment) error {
	id := c.Id
	if id == uuid.Nil {
		id = uuid.New()
	}
	published := c.Published
	if published.IsZero() {
		published = time.Now()
	}
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlInsertComment,
			id.String(),
			util.NormalizeURI(c.PostId),
			util.NormalizeURI(c.AuthorId),
			c.Comment,
			c.ContentType,
			published,
		)
		return err
	})
}

func (db *DB) ReadCommentsByPost(postId string) (error, *[]domain.Comment) {
	p1, p2 := variants(postId)
	rows, err := db.db.Query(sqlSelectCommentsByPost, p1, p2)
	if err != nil {
		return err, nil
	}
	defer rows.Close()

	var comments []domain.Comment

	for rows.Next() {
		var c domain.Comment
		var idStr string
		if err := rows.Scan(&idStr, &c.PostId, &c.AuthorId, &c.Comment, &c.ContentType, &c.Published); err != nil {
			return err, &comments
		}
		c.Id, _ = uuid.Parse(idStr)
		comments = append(comments, c)
	}
	if err = rows.Err(); err != nil {
		return err, &comments
	}

	return nil, &comments
}

// UpsertRemoteCommentAuthor refreshes the cached display data for a
// remote comment author. The cache is read-through, never authoritative.
func (db *DB) UpsertRemoteCommentAuthor(rca *domain.RemoteCommentAuthor) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlUpsertRemoteCommentAuthor,
			util.NormalizeURI(rca.AuthorId),
			rca.Host,
			rca.DisplayName,
			rca.Github,
		)
		return err
	})
}

func (db *DB) FindRemoteCommentAuthor(authorId string) (error, *domain.RemoteCommentAuthor) {
	v1, v2 := variants(authorId)
	row := db.db.QueryRow(sqlSelectRemoteCommentAuthor, v1, v2)
	var rca domain.RemoteCommentAuthor
	err := row.Scan(&rca.AuthorId, &rca.Host, &rca.DisplayName, &rca.Github)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return err, nil
	}
	return nil, &rca
}

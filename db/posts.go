package db

import (
	"database/sql"
	"time"

	"github.com/distsocial/streamnode/domain"
	"github.com/distsocial/streamnode/util"
)

const (
	sqlCreatePostsTable = `CREATE TABLE IF NOT EXISTS posts(
                        id varchar(500) NOT NULL PRIMARY KEY,
                        author_id varchar(500) NOT NULL,
                        title varchar(100),
                        description varchar(256) default '',
                        content text,
                        content_type varchar(64),
                        visibility varchar(16) NOT NULL,
                        unlisted int default 0,
                        published timestamp default current_timestamp
                        )`
	sqlCreateCategoriesTable = `CREATE TABLE IF NOT EXISTS categories(
                        post_id varchar(500) NOT NULL,
                        category varchar(64) NOT NULL
                        )`
	sqlCreateCanSeeTable = `CREATE TABLE IF NOT EXISTS can_see(
                        post_id varchar(500) NOT NULL,
                        visible_to varchar(500) NOT NULL
                        )`

	sqlInsertPost = `INSERT INTO posts(id, author_id, title, description, content, content_type, visibility, unlisted, published) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	sqlUpdatePost = `UPDATE posts SET title = ?, description = ?, content = ?, content_type = ?, visibility = ?, unlisted = ?, published = ? WHERE id IN (?, ?)`
	sqlDeletePost = `DELETE FROM posts WHERE id IN (?, ?)`
	sqlSelectPost = `SELECT id, author_id, title, description, content, content_type, visibility, unlisted, published FROM posts WHERE id IN (?, ?)`

	sqlSelectAllPosts = `SELECT id, author_id, title, description, content, content_type, visibility, unlisted, published FROM posts
                                                            ORDER BY published DESC`
	sqlSelectPublicPosts = `SELECT id, author_id, title, description, content, content_type, visibility, unlisted, published FROM posts
                                                            WHERE visibility = 'PUBLIC' AND unlisted = 0
                                                            ORDER BY published DESC LIMIT ? OFFSET ?`
	sqlCountPublicPosts   = `SELECT count(*) FROM posts WHERE visibility = 'PUBLIC' AND unlisted = 0`
	sqlSelectListablePosts = `SELECT id, author_id, title, description, content, content_type, visibility, unlisted, published FROM posts
                                                            WHERE unlisted = 0 AND visibility != 'SERVERONLY'
                                                            ORDER BY published DESC LIMIT ? OFFSET ?`
	sqlCountListablePosts = `SELECT count(*) FROM posts WHERE unlisted = 0 AND visibility != 'SERVERONLY'`
	sqlSelectAuthorPosts = `SELECT id, author_id, title, description, content, content_type, visibility, unlisted, published FROM posts
                                                            WHERE author_id IN (?, ?) AND unlisted = 0 AND visibility != 'SERVERONLY'
                                                            ORDER BY published DESC LIMIT ? OFFSET ?`
	sqlCountAuthorPosts = `SELECT count(*) FROM posts WHERE author_id IN (?, ?) AND unlisted = 0 AND visibility != 'SERVERONLY'`

	sqlInsertCategory        = `INSERT INTO categories(post_id, category) VALUES (?, ?)`
	sqlDeleteCategories      = `DELETE FROM categories WHERE post_id = ?`
	sqlSelectCategories      = `SELECT category FROM categories WHERE post_id = ?`
	sqlInsertCanSee          = `INSERT INTO can_see(post_id, visible_to) VALUES (?, ?)`
	sqlDeleteCanSee          = `DELETE FROM can_see WHERE post_id = ?`
	sqlSelectCanSee          = `SELECT visible_to FROM can_see WHERE post_id = ?`
)

// CreatePost stores a post with its categories and visibleTo list in one
// transaction. The write-time invariant is enforced here: a post that
// sets visibleTo without PRIVATE visibility never reaches the tables.
func (db *DB) CreatePost(p *domain.Post) error {
	if err := p.Validate(); err != nil {
		return err
	}

	id := util.NormalizeURI(p.Id)
	published := p.Published
	if published.IsZero() {
		published = time.Now()
	}

	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlInsertPost,
			id,
			util.NormalizeURI(p.AuthorId),
			p.Title,
			p.Description,
			p.Content,
			p.ContentType,
			p.Visibility,
			p.Unlisted,
			published,
		)
		if err != nil {
			return err
		}
		return insertPostRelations(tx, id, p)
	})
}

// UpdatePost rewrites a post row and replaces its categories and
// visibleTo list. Same write-time invariant as CreatePost.
func (db *DB) UpdatePost(p *domain.Post) error {
	if err := p.Validate(); err != nil {
		return err
	}

	id := util.NormalizeURI(p.Id)
	v1, v2 := variants(id)

	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlUpdatePost,
			p.Title,
			p.Description,
			p.Content,
			p.ContentType,
			p.Visibility,
			p.Unlisted,
			p.Published,
			v1, v2,
		)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(sqlDeleteCategories, id); err != nil {
			return err
		}
		if _, err := tx.Exec(sqlDeleteCanSee, id); err != nil {
			return err
		}
		return insertPostRelations(tx, id, p)
	})
}

func insertPostRelations(tx *sql.Tx, id string, p *domain.Post) error {
	for _, category := range p.Categories {
		if _, err := tx.Exec(sqlInsertCategory, id, category); err != nil {
			return err
		}
	}
	for _, visibleTo := range p.VisibleTo {
		if _, err := tx.Exec(sqlInsertCanSee, id, util.NormalizeURI(visibleTo)); err != nil {
			return err
		}
	}
	return nil
}

func (db *DB) DeletePost(id string) error {
	norm := util.NormalizeURI(id)
	v1, v2 := variants(norm)
	return db.wrapTransaction(func(tx *sql.Tx) error {
		if _, err := tx.Exec(sqlDeletePost, v1, v2); err != nil {
			return err
		}
		if _, err := tx.Exec(sqlDeleteCategories, norm); err != nil {
			return err
		}
		_, err := tx.Exec(sqlDeleteCanSee, norm)
		return err
	})
}

// FindPostById returns a post with its categories and visibleTo loaded,
// or (nil, nil) when no such post exists.
func (db *DB) FindPostById(id string) (error, *domain.Post) {
	v1, v2 := variants(id)
	row := db.db.QueryRow(sqlSelectPost, v1, v2)
	var p domain.Post
	err := row.Scan(&p.Id, &p.AuthorId, &p.Title, &p.Description, &p.Content, &p.ContentType, &p.Visibility, &p.Unlisted, &p.Published)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return err, nil
	}
	if err := db.loadPostRelations(&p); err != nil {
		return err, nil
	}
	return nil, &p
}

func (db *DB) ReadAllPosts() (error, *[]domain.Post) {
	return db.readPosts(sqlSelectAllPosts)
}

func (db *DB) ReadPublicPosts(limit, offset int) (error, *[]domain.Post) {
	return db.readPosts(sqlSelectPublicPosts, limit, offset)
}

func (db *DB) CountPublicPosts() (error, int) {
	var count int
	err := db.db.QueryRow(sqlCountPublicPosts).Scan(&count)
	if err != nil {
		return err, 0
	}
	return nil, count
}

// ReadListablePosts returns every post a peer node may fetch and filter
// on its side. Unlisted and SERVERONLY posts never leave this node.
func (db *DB) ReadListablePosts(limit, offset int) (error, *[]domain.Post) {
	return db.readPosts(sqlSelectListablePosts, limit, offset)
}

func (db *DB) CountListablePosts() (error, int) {
	var count int
	err := db.db.QueryRow(sqlCountListablePosts).Scan(&count)
	if err != nil {
		return err, 0
	}
	return nil, count
}

// ReadPostsByAuthor returns an author's listable posts: unlisted and
// SERVERONLY posts are never served to other nodes.
func (db *DB) ReadPostsByAuthor(authorId string, limit, offset int) (error, *[]domain.Post) {
	a1, a2 := variants(authorId)
	return db.readPosts(sqlSelectAuthorPosts, a1, a2, limit, offset)
}

func (db *DB) CountPostsByAuthor(authorId string) (error, int) {
	a1, a2 := variants(authorId)
	var count int
	err := db.db.QueryRow(sqlCountAuthorPosts, a1, a2).Scan(&count)
	if err != nil {
		return err, 0
	}
	return nil, count
}

func (db *DB) readPosts(query string, args ...interface{}) (error, *[]domain.Post) {
	rows, err := db.db.Query(query, args...)
	if err != nil {
		return err, nil
	}
	defer rows.Close()

	var posts []domain.Post

	for rows.Next() {
		var p domain.Post
		if err := rows.Scan(&p.Id, &p.AuthorId, &p.Title, &p.Description, &p.Content, &p.ContentType, &p.Visibility, &p.Unlisted, &p.Published); err != nil {
			return err, &posts
		}
		posts = append(posts, p)
	}
	if err = rows.Err(); err != nil {
		return err, &posts
	}

	for i := range posts {
		if err := db.loadPostRelations(&posts[i]); err != nil {
			return err, &posts
		}
	}

	return nil, &posts
}

func (db *DB) loadPostRelations(p *domain.Post) error {
	rows, err := db.db.Query(sqlSelectCategories, p.Id)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var category string
		if err := rows.Scan(&category); err != nil {
			return err
		}
		p.Categories = append(p.Categories, category)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	seeRows, err := db.db.Query(sqlSelectCanSee, p.Id)
	if err != nil {
		return err
	}
	defer seeRows.Close()
	for seeRows.Next() {
		var visibleTo string
		if err := seeRows.Scan(&visibleTo); err != nil {
			return err
		}
		p.VisibleTo = append(p.VisibleTo, visibleTo)
	}
	return seeRows.Err()
}

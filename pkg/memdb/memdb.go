// Package memdb is an in-process record store made of typed collections.
//
// A DB owns one lock. Collection methods are not synchronised on their own:
// callers group them inside DB.Read or DB.Write so that multi-collection
// operations (cascading deletes, insert-and-increment) are atomic.
package memdb

import (
	"errors"
	"sync"
)

// ErrExists 插入时主键已存在
var ErrExists = errors.New("memdb: key already exists")

// DB 内存数据库
type DB struct {
	mu   sync.RWMutex
	cols map[string]interface{}
	reg  sync.Mutex
}

// New 创建空数据库
func New() *DB {
	return &DB{cols: make(map[string]interface{})}
}

// Read 在读锁内执行 fn
func (db *DB) Read(fn func()) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	fn()
}

// Write 在写锁内执行 fn
func (db *DB) Write(fn func() error) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	return fn()
}

// Collection 按字符串主键存放 T 的值拷贝
type Collection[T any] struct {
	rows map[string]T
}

// Use 返回名为 name 的集合，不存在则创建。
// 同名集合必须始终以同一类型使用。
func Use[T any](db *DB, name string) *Collection[T] {
	db.reg.Lock()
	defer db.reg.Unlock()

	if c, ok := db.cols[name]; ok {
		return c.(*Collection[T])
	}
	c := &Collection[T]{rows: make(map[string]T)}
	db.cols[name] = c
	return c
}

// Get 按主键查询
func (c *Collection[T]) Get(id string) (T, bool) {
	v, ok := c.rows[id]
	return v, ok
}

// Insert 插入新记录，主键冲突返回 ErrExists
func (c *Collection[T]) Insert(id string, v T) error {
	if _, ok := c.rows[id]; ok {
		return ErrExists
	}
	c.rows[id] = v
	return nil
}

// Put 覆盖写入
func (c *Collection[T]) Put(id string, v T) {
	c.rows[id] = v
}

// Delete 删除记录，返回是否存在
func (c *Collection[T]) Delete(id string) bool {
	if _, ok := c.rows[id]; !ok {
		return false
	}
	delete(c.rows, id)
	return true
}

// Filter 返回满足 pred 的记录（无序）
func (c *Collection[T]) Filter(pred func(T) bool) []T {
	out := make([]T, 0)
	for _, v := range c.rows {
		if pred == nil || pred(v) {
			out = append(out, v)
		}
	}
	return out
}

// Find 返回第一条满足 pred 的记录
func (c *Collection[T]) Find(pred func(T) bool) (T, bool) {
	for _, v := range c.rows {
		if pred(v) {
			return v, true
		}
	}
	var zero T
	return zero, false
}

// DeleteWhere 删除满足 pred 的记录，返回删除数量
func (c *Collection[T]) DeleteWhere(pred func(T) bool) int {
	n := 0
	for id, v := range c.rows {
		if pred(v) {
			delete(c.rows, id)
			n++
		}
	}
	return n
}

// Len 记录数量
func (c *Collection[T]) Len() int {
	return len(c.rows)
}

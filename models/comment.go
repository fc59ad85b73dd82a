package models

import (
	"fknsrs.biz/p/ytwarehouse/internal/sqlbuilderutil"
	"fknsrs.biz/p/ytwarehouse/internal/sqltypes"
)

var (
	CommentTable *sqlbuilderutil.Table
)

func init() {
	CommentTable = sqlbuilderutil.MustMakeTable(Comment{})
}

type Comment struct {
	ID          string `sql:",table:comments"`
	VideoID     string
	Text        string
	Author      string
	PublishedAt sqltypes.Timestamp
}

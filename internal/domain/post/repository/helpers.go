package repository

import (
	"errors"
	"fmt"
	"sort"

	"campusfind/internal/domain/post/model"
	"campusfind/pkg/errs"
)

func sortByCreatedDesc(list []model.Post) {
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
}

// wrapTxError 保留领域错误，其余加上操作名
func wrapTxError(op string, err error) error {
	if errors.Is(err, errs.ErrNotFound) || errors.Is(err, errs.ErrValidation) {
		return err
	}
	return fmt.Errorf("%s: %w", op, err)
}

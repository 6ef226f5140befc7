package utils

import (
	"context"

	"github.com/mmdatafocus/planning_backend/config"
)

// ResourceCountWhere counts rows of model T for the tenant matching cond.
func ResourceCountWhere[T any](ctx context.Context, tenantId string, cond string, values ...interface{}) (int64, error) {
	db := config.GetDB()
	var model T
	var count int64
	err := db.WithContext(ctx).Model(&model).
		Where("tenant_id = ?", tenantId).
		Where(cond, values...).
		Count(&count).Error
	return count, err
}

// ValidateResourceId checks that an id exists for the tenant; returns ErrorRecordNotFound.
func ValidateResourceId[T any](ctx context.Context, tenantId string, id interface{}) error {
	count, err := ResourceCountWhere[T](ctx, tenantId, "id = ?", id)
	if err != nil {
		return err
	}
	if count <= 0 {
		return ErrorRecordNotFound
	}
	return nil
}

// ValidateResourcesId checks that ALL ids exist for the tenant; returns ErrorRecordNotFound.
func ValidateResourcesId[M any, ID comparable](ctx context.Context, tenantId string, ids []ID) error {
	unqIds := UniqueSlice(ids)

	count, err := ResourceCountWhere[M](ctx, tenantId, "id IN ?", unqIds)
	if err != nil {
		return err
	}
	if count != int64(len(unqIds)) {
		return ErrorRecordNotFound
	}
	return nil
}

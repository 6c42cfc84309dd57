package infrastructure

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// AutoMigrate 创建或更新订单服务用到的所有表
func AutoMigrate(ctx context.Context, db *gorm.DB) error {
	err := db.WithContext(ctx).
		Set("gorm:table_options", "ENGINE=InnoDB DEFAULT CHARSET=utf8mb4").
		AutoMigrate(&OrderModel{}, &OrderItemModel{}, &StoreModel{}, &ProductModel{})
	return errors.Wrap(err, "auto migrate")
}

package infrastructure

import (
	"marketplace/internal/service/order/domain"
	"marketplace/internal/service/order/domain/port"
)

// ToDomainOrder 将数据库模型转换为领域模型；Items 需要已按 position 排好序
func ToDomainOrder(model *OrderModel) *domain.Order {
	if model == nil {
		return nil
	}
	items := make([]domain.OrderItem, len(model.Items))
	for i, it := range model.Items {
		items[i] = ToDomainOrderItem(&it)
	}
	return &domain.Order{
		ID:            model.ID,
		TrackingID:    model.TrackingID,
		CustomerID:    model.CustomerID,
		FirstName:     model.FirstName,
		LastName:      model.LastName,
		Phone:         model.Phone,
		Email:         model.Email,
		HouseAddress:  model.HouseAddress,
		Items:         items,
		ItemsTotal:    model.ItemsTotal,
		ShippingFee:   model.ShippingFee,
		GrandTotal:    model.GrandTotal,
		PaymentMethod: domain.PaymentMethod(model.PaymentMethod),
		PaymentStatus: domain.PaymentStatus(model.PaymentStatus),
		Version:       model.Version,
		CreatedAt:     model.CreatedAt,
		UpdatedAt:     model.UpdatedAt,
	}
}

func ToDomainOrderItem(model *OrderItemModel) domain.OrderItem {
	return domain.OrderItem{
		ProductID:         model.ProductID,
		Name:              model.Name,
		Price:             model.Price,
		Quantity:          model.Quantity,
		Image:             model.Image,
		StoreID:           model.StoreID,
		ItemPaymentStatus: domain.ItemPaymentStatus(model.ItemPaymentStatus),
	}
}

// FromDomainOrder 将领域模型转换为数据库模型（用于插入）
func FromDomainOrder(o *domain.Order) *OrderModel {
	if o == nil {
		return nil
	}
	items := make([]OrderItemModel, len(o.Items))
	for i, it := range o.Items {
		items[i] = OrderItemModel{
			OrderID:           o.ID,
			Position:          i,
			ProductID:         it.ProductID,
			Name:              it.Name,
			Price:             it.Price,
			Quantity:          it.Quantity,
			Image:             it.Image,
			StoreID:           it.StoreID,
			ItemPaymentStatus: string(it.ItemPaymentStatus),
		}
	}
	return &OrderModel{
		ID:            o.ID,
		TrackingID:    o.TrackingID,
		CustomerID:    o.CustomerID,
		FirstName:     o.FirstName,
		LastName:      o.LastName,
		Phone:         o.Phone,
		Email:         o.Email,
		HouseAddress:  o.HouseAddress,
		ItemsTotal:    o.ItemsTotal,
		ShippingFee:   o.ShippingFee,
		GrandTotal:    o.GrandTotal,
		PaymentMethod: string(o.PaymentMethod),
		PaymentStatus: string(o.PaymentStatus),
		Version:       o.Version,
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
		Items:         items,
	}
}

func ToPortProduct(model *ProductModel) port.Product {
	return port.Product{
		ID:      model.ID,
		Name:    model.Name,
		Price:   model.Price,
		StoreID: model.StoreID,
	}
}

package service

import (
	"fmt"

	"github.com/foodboard/api/internal/database"
	"github.com/foodboard/api/internal/enum"
	"github.com/foodboard/api/internal/notify"
)

var statusMessages = map[string]string{
	enum.OrderStatusPreparing: "Your order #%d is being prepared.",
	enum.OrderStatusReady:     "Your order #%d is ready.",
	enum.OrderStatusDelivered: "Your order #%d has been delivered. Enjoy!",
}

func (s *OrderService) enqueue(msg notify.Message) {
	if !s.queue.Enqueue(msg) {
		s.logger.Warn("notification not queued", "order_id", msg.OrderID, "kind", msg.Kind)
	}
}

func (s *OrderService) notifyCreated(o database.Order) {
	s.enqueue(notify.NewMessage(enum.NotificationCustomer, o.CustomerPhone,
		fmt.Sprintf("Hi %s, we received your order #%d. Total: %s.", o.CustomerName, o.ID, money(o.Total)),
		o.ID))

	if s.staff == "" {
		return
	}
	fulfilment := "delivery"
	if o.IsPickup {
		fulfilment = "pickup"
	}
	text := fmt.Sprintf("New order #%d from %s (%s), total %s.", o.ID, o.CustomerName, fulfilment, money(o.Total))
	if o.IsBlacklisted {
		text += " Phone is on the blacklist."
	}
	s.enqueue(notify.NewMessage(enum.NotificationStaff, s.staff, text, o.ID))
}

func (s *OrderService) notifyStatus(o database.Order) {
	format, ok := statusMessages[o.Status]
	if !ok {
		return
	}
	s.enqueue(notify.NewMessage(enum.NotificationCustomer, o.CustomerPhone, fmt.Sprintf(format, o.ID), o.ID))
}

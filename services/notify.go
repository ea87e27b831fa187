package services

// WsNotify - структура произвольного уведомления для websocket
type WsNotify struct {
	NotifyType string `json:"notify_type"`
	Message    string `json:"message"`
}

// SendWsNotify - отправка уведомления пользователю, если он подключен
func SendWsNotify(registry *PresenceRegistry, userID int64, notifyType string, message string) error {
	if len(notifyType) == 0 {
		notifyType = "info"
	}
	if len(message) == 0 {
		return nil
	}
	if len(message) > 100 {
		message = message[:100] + "..."
	}
	client := registry.Lookup(userID)
	if client == nil {
		return nil
	}
	return client.SendEvent("notify", WsNotify{NotifyType: notifyType, Message: message})
}

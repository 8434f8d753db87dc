// Package fanout turns domain document-creation events into push
// notifications: it gathers recipients, dispatches one batched push per
// event, and reconciles invalid tokens afterward.
package fanout

// ChatMessage is a message document created under chats/{chatId}/messages.
type ChatMessage struct {
	ChatID    string `json:"chatId"`
	MessageID string `json:"messageId"`
	SenderID  string `json:"senderId"`
	Text      string `json:"text"`
	Kind      string `json:"type"`
}

// PendingAlert is a danger alert created under user_alerts/{uid}/pending.
type PendingAlert struct {
	UID      string `json:"uid"`
	MsgID    string `json:"msgId"`
	ChatID   string `json:"chatId"`
	FromUID  string `json:"fromUid"`
	FromName string `json:"fromName"`
}

// Call is an incoming call document created under calls.
type Call struct {
	CallID     string `json:"callId"`
	Caller     string `json:"caller"`
	Callee     string `json:"callee"`
	CallerName string `json:"callerName"`
}

// OrderItem is one line of a market order. The product id links to the
// market_products collection, which holds the seller.
type OrderItem struct {
	ProductID string `json:"id"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
}

// MarketOrder is an order document created under market_orders.
type MarketOrder struct {
	OrderID  string      `json:"orderId"`
	BuyerUID string      `json:"buyerUid"`
	Items    []OrderItem `json:"items"`
}

// MarketMessage is a buyer/seller message created under market_messages.
type MarketMessage struct {
	MsgID       string `json:"msgId"`
	From        string `json:"from"`
	To          string `json:"to"`
	ProductID   string `json:"productId"`
	ProductName string `json:"productName"`
	Content     string `json:"content"`
}

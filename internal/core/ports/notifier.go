package ports

// Message is an outbound email.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Notifier hands messages off for asynchronous delivery. Send never blocks
// on delivery and delivery failures never reach the caller.
type Notifier interface {
	Send(msg Message)
}

package bus

type Notification struct {
	Text string
}

package domain

// MessageBus routes messages between channels and the agent loop. Subagent
// announces re-enter the pipeline through Publish like any other inbound
// message.
type MessageBus interface {
	Publish(msg InboundMessage)
	Subscribe() <-chan InboundMessage
	SendOutbound(msg OutboundMessage)
	OnOutbound(channelName string, handler func(OutboundMessage))
	Close()
}

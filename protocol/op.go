package protocol

// Message IDs carried in a control envelope's id field (spec.md §4.7.2).
const (
	idAck                 uint16 = 1
	idJitterBufSizeReply  uint16 = 10
	idJitterBufSizeReq    uint16 = 11
	idChannelGain         uint16 = 13
	idChatText            uint16 = 18
	idNetworkProperties   uint16 = 20
	idReqNetworkProps     uint16 = 21
	idReqChannelInfo      uint16 = 23
	idChannelInfo         uint16 = 25
	idClientList          uint16 = 24
	idAssignedChannelID   uint16 = 32
	idSplitMessageSupport uint16 = 34
	idDisconnect          uint16 = 1010
)

// ackThreshold is the exclusive upper bound of ids that receive a generic
// acknowledgement. idAck is excluded explicitly: it carries no reply of
// its own (spec.md §4.7.3).
const ackThreshold = 1000

// needsGenericAck reports whether id falls under the blanket
// acknowledgement rule: every id below ackThreshold except idAck.
func needsGenericAck(id uint16) bool {
	return id != idAck && id < ackThreshold
}

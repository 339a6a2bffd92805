package protocol

import (
	"context"
	"encoding/binary"
	"log"
	"net"
	"time"

	"github.com/pkg/errors"

	"github.com/jamulus-go/client/audio"
)

// errShortOrUnknownDatagram is logged when a datagram fails the control
// parse and isn't 332 bytes long either (spec.md §7 "Unknown-length
// datagram").
var errShortOrUnknownDatagram = errors.New("protocol: datagram is neither a valid control envelope nor a 332-byte audio packet")

// errMalformedChatText is logged when an id-18 payload's length prefix
// doesn't fit the data that follows it.
var errMalformedChatText = errors.New("protocol: malformed chat text payload")

// silentUpstreamInterval is the cadence of the filler-audio transmitter
// (spec.md §4.7.6).
const silentUpstreamInterval = 100 * time.Millisecond

// audioPacketSize is the fixed size of an inbound audio datagram (spec.md
// §4.7.1); anything of a different length that also fails a control parse
// is discarded.
const audioPacketSize = 332

// recvDeadline bounds a single UDP read so the reader goroutine
// periodically wakes up and rechecks ctx instead of blocking forever on
// a quiet socket; a deadline expiring is logged, not fatal (spec.md §7
// "Receive timeout").
const recvDeadline = 500 * time.Millisecond

// conn is the subset of net.Conn the engine depends on, narrowed so tests
// can substitute an in-memory pipe instead of a real UDP socket.
type conn interface {
	Read(b []byte) (int, error)
	Write(b []byte) (int, error)
	SetReadDeadline(t time.Time) error
	Close() error
}

// Engine runs the receive/send loop described by spec.md §4.7: it
// classifies every inbound datagram as control or audio, dispatches
// control messages, maintains the session's counter and acknowledgement
// state, drives the silent-upstream generator, and performs an orderly
// disconnect on shutdown.
type Engine struct {
	Conn    conn
	Session *Session
	Handler Handler

	silence audio.SilenceGenerator

	channelID uint16

	// ErrorLog is called on every absorbed steady-state error (defaults
	// to log.Println, matching the teacher's connection-level hook).
	ErrorLog func(err error)
}

// NewEngine builds an Engine bound to c, dispatching into h under session.
func NewEngine(c conn, session *Session, h Handler) *Engine {
	return &Engine{
		Conn:     c,
		Session:  session,
		Handler:  h,
		ErrorLog: func(err error) { log.Println("protocol:", err) },
	}
}

// Run executes the receive/silence-timer/shutdown loop until ctx is
// cancelled or the connection is closed out from under it. It always
// attempts one final disconnect send before returning (spec.md §4.7.7).
func (e *Engine) Run(ctx context.Context) error {
	defer e.Conn.Close()

	datagrams := make(chan []byte)
	readErrs := make(chan error, 1)
	go e.readLoop(ctx, datagrams, readErrs)

	ticker := time.NewTicker(silentUpstreamInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return e.shutdown()

		case b := <-datagrams:
			e.handleDatagram(b)

		case err := <-readErrs:
			if serr := e.shutdown(); serr != nil {
				e.ErrorLog(serr)
			}
			return err

		case <-ticker.C:
			e.sendSilence()
		}
	}
}

// readLoop owns all reads off Conn and forwards complete datagrams to out.
// It exits (closing nothing itself) once ctx is done or a non-timeout read
// error occurs.
func (e *Engine) readLoop(ctx context.Context, out chan<- []byte, errs chan<- error) {
	buf := make([]byte, 2048)
	for {
		if ctx.Err() != nil {
			return
		}

		if err := e.Conn.SetReadDeadline(time.Now().Add(recvDeadline)); err != nil {
			errs <- err
			return
		}

		n, err := e.Conn.Read(buf)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				e.ErrorLog(err)
				continue
			}
			if ctx.Err() != nil {
				return
			}
			errs <- err
			return
		}

		b := make([]byte, n)
		copy(b, buf[:n])

		select {
		case out <- b:
		case <-ctx.Done():
			return
		}
	}
}

func (e *Engine) handleDatagram(b []byte) {
	_, msg, err := Parse(b)
	if err != nil {
		if len(b) != audioPacketSize {
			e.ErrorLog(errShortOrUnknownDatagram)
			return
		}
		if herr := e.Handler.HandleAudioPacket(b); herr != nil {
			e.ErrorLog(herr)
		}
		return
	}

	e.dispatch(msg)

	if needsGenericAck(msg.ID) {
		e.sendAck(msg.ID, msg.Counter)
	}
}

func (e *Engine) dispatch(msg Message) {
	switch msg.ID {
	case idAck:
		// No reaction beyond the generic ack rule, which excludes idAck.

	case idJitterBufSizeReq:
		e.sendOriginating(idJitterBufSizeReply, le16(4))

	case idChatText:
		text, ok := decodeLengthPrefixedText(msg.Data)
		if !ok {
			e.ErrorLog(errMalformedChatText)
			return
		}
		e.Handler.HandleChatText(text)

	case idReqNetworkProps:
		e.sendOriginating(idNetworkProperties, networkPropertiesPayload())

	case idReqChannelInfo:
		e.sendOriginating(idChannelInfo, e.channelInfoPayload())

	case idClientList:
		clients, err := ParseClientInfoList(msg.Data)
		if err != nil {
			e.ErrorLog(err)
			return
		}
		for _, c := range clients {
			e.sendOriginating(idChannelGain, channelGainPayload(c.ChannelID))
		}

	case idAssignedChannelID:
		if len(msg.Data) >= 2 {
			e.channelID = binary.LittleEndian.Uint16(msg.Data[:2])
		}

	case idSplitMessageSupport:
		// No-op.

	default:
		// Unknown ids are silently accepted.
	}
}

// sendAck issues the generic acknowledgement for a received message,
// echoing its counter rather than consuming the outbound counter (spec.md
// §4.7.3).
func (e *Engine) sendAck(receivedID uint16, receivedCounter uint8) {
	wire, err := Serialize(idAck, receivedCounter, le16(receivedID))
	if err != nil {
		e.ErrorLog(err)
		return
	}
	e.write(wire)
}

// sendOriginating sends an engine-initiated message, consuming exactly
// one tick of the session's outbound counter (spec.md §4.7.4).
func (e *Engine) sendOriginating(id uint16, data []byte) {
	wire, err := Serialize(id, e.Session.nextCounter(), data)
	if err != nil {
		e.ErrorLog(err)
		return
	}
	e.write(wire)
}

func (e *Engine) sendSilence() {
	e.write(e.silence.Next())
}

func (e *Engine) shutdown() error {
	e.Session.MarkShuttingDown()
	wire, err := Serialize(idDisconnect, e.Session.nextCounter(), nil)
	if err != nil {
		return err
	}
	e.write(wire)
	return nil
}

func (e *Engine) write(b []byte) {
	if _, err := e.Conn.Write(b); err != nil {
		e.ErrorLog(err)
	}
}

func le16(v uint16) []byte {
	b := make([]byte, 2)
	binary.LittleEndian.PutUint16(b, v)
	return b
}

func decodeLengthPrefixedText(data []byte) (string, bool) {
	if len(data) < 2 {
		return "", false
	}
	n := int(binary.LittleEndian.Uint16(data[:2]))
	if len(data) < 2+n {
		return "", false
	}
	return string(data[2 : 2+n]), true
}

// networkPropertiesPayload is the fixed 19-byte response to idReqNetworkProps
// (spec.md §4.7.2): packet size, block size, stereo channel count, sample
// rate, codec=Opus, sequence-number flag, no codec options.
func networkPropertiesPayload() []byte {
	b := make([]byte, 19)
	binary.LittleEndian.PutUint32(b[0:4], 166)
	binary.LittleEndian.PutUint16(b[4:6], 2)
	b[6] = 2
	binary.LittleEndian.PutUint32(b[7:11], 48000)
	binary.LittleEndian.PutUint16(b[11:13], 2)
	binary.LittleEndian.PutUint16(b[13:15], 1)
	binary.LittleEndian.PutUint32(b[15:19], 0)
	return b
}

// channelInfoPayload builds the idReqChannelInfo reply for e's session:
// fixed country/instrument/skill values and the display name, with an
// empty city (spec.md §4.7.2).
func (e *Engine) channelInfoPayload() []byte {
	name := e.Session.DisplayName

	b := make([]byte, 0, 2+4+1+2+len(name)+2)
	b = binary.LittleEndian.AppendUint16(b, 0)  // country
	b = binary.LittleEndian.AppendUint32(b, 25) // instrument
	b = append(b, 3)                            // skill
	b = binary.LittleEndian.AppendUint16(b, uint16(len(name)))
	b = append(b, name...)
	b = binary.LittleEndian.AppendUint16(b, 0) // city, empty
	return b
}

// channelGainPayload is the unmute-at-unit-gain reply sent once per client
// list entry (spec.md §4.7.2).
func channelGainPayload(channelID uint8) []byte {
	return []byte{channelID, 0x00, 0x80}
}

package comm

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"strings"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
)

// Interfaces

// Handler is implemented by the node layer and decides what
// happens with an operation received from a peer: immediate
// delivery, parking in the hold-back queue, duplicate drop or
// rejection as malformed.
type Handler interface {

	// ReceiveReplicated hands one received operation to the
	// delivery engine and reports the outcome.
	ReceiveReplicated(op *Operation) (Outcome, error)
}

// Structs

// Receiver accepts incoming sync plane connections from peer
// nodes, parses newline-delimited operations off them and
// passes each operation on to the supplied handler. The
// resulting outcome is answered back as a one-line status.
type Receiver struct {
	logger  log.Logger
	name    string
	handler Handler
}

// Functions

// NewReceiver returns an initialized receiver for the local
// node with supplied name.
func NewReceiver(logger log.Logger, name string, handler Handler) *Receiver {

	return &Receiver{
		logger:  logger,
		name:    name,
		handler: handler,
	}
}

// Serve loops over incoming sync connections on the supplied
// listener and dispatches each one into its own goroutine.
func (recv *Receiver) Serve(socket net.Listener) error {

	for {

		// Accept request or fail on error.
		conn, err := socket.Accept()
		if err != nil {
			return fmt.Errorf("accepting incoming sync connection at %s failed with: %v", recv.name, err)
		}

		go recv.handleConnection(conn)
	}
}

// handleConnection reads operations off one peer connection
// until the peer disconnects. Every received line is parsed,
// handed to the handler and answered with the outcome.
func (recv *Receiver) handleConnection(conn net.Conn) {

	defer conn.Close()

	reader := bufio.NewReader(conn)

	for {

		raw, err := reader.ReadString('\n')
		if err != nil {

			if err != io.EOF {
				level.Debug(recv.logger).Log(
					"msg", "error while reading replication message from peer",
					"err", err,
				)
			}

			return
		}

		raw = strings.TrimRight(raw, "\r\n")
		if raw == "" {
			continue
		}

		op, err := Parse(raw)
		if err != nil {

			level.Info(recv.logger).Log(
				"msg", "discarding malformed replication message",
				"err", err,
			)

			if _, err := fmt.Fprintf(conn, "%s\n", OutcomeInvalid); err != nil {
				return
			}

			continue
		}

		outcome, err := recv.handler.ReceiveReplicated(op)
		if err != nil {
			level.Error(recv.logger).Log(
				"msg", fmt.Sprintf("handling replicated operation for record %s from %s failed", op.Key, op.Origin),
				"err", err,
			)
		}

		if _, err := fmt.Fprintf(conn, "%s\n", outcome); err != nil {
			return
		}
	}
}

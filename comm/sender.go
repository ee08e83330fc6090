package comm

import (
	"bufio"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
)

// Structs

// Sender pushes locally originated operations to every peer
// node of a ceres system. Replication is deliberately
// best-effort and fire-and-forget: each peer send runs
// independently with its own deadline, a failed or timed-out
// send is logged and swallowed, and no retries are scheduled.
// Consistency with a missed peer is restored later via the
// hold-back queue once the operation reaches it on another
// path.
type Sender struct {
	logger  log.Logger
	name    string
	peers   map[string]string
	timeout time.Duration
}

// Functions

// NewSender returns an initialized sender for the local node
// with supplied name. The peers map carries the sync plane
// address of every other node in the system.
func NewSender(logger log.Logger, name string, peers map[string]string, timeout time.Duration) *Sender {

	return &Sender{
		logger:  logger,
		name:    name,
		peers:   peers,
		timeout: timeout,
	}
}

// Dispatch sends the supplied operation to every configured
// peer except the local node itself. All sends run in
// parallel and Dispatch returns once each of them finished or
// hit its deadline. It is called after the node-wide critical
// section was released, so a slow or unreachable peer never
// blocks local delivery.
func (sender *Sender) Dispatch(op *Operation) {

	wg := &sync.WaitGroup{}

	for node, addr := range sender.peers {

		if node == sender.name {
			continue
		}

		wg.Add(1)

		go func(node string, addr string) {
			defer wg.Done()
			sender.sendToPeer(node, addr, op)
		}(node, addr)
	}

	wg.Wait()
}

// sendToPeer connects to one peer, writes the operation in
// wire format and waits for the one-line outcome status. Any
// failure on the way is logged and swallowed: the local write
// that triggered this send already succeeded.
func (sender *Sender) sendToPeer(node string, addr string, op *Operation) {

	// Connect to peer with bounded dial time.
	conn, err := net.DialTimeout("tcp", addr, sender.timeout)
	if err != nil {
		level.Warn(sender.logger).Log(
			"msg", fmt.Sprintf("could not connect to peer %s for replication", node),
			"key", op.Key,
			"err", err,
		)
		return
	}
	defer conn.Close()

	// Bound the whole exchange with this peer.
	if err := conn.SetDeadline(time.Now().Add(sender.timeout)); err != nil {
		level.Warn(sender.logger).Log(
			"msg", fmt.Sprintf("could not set deadline on connection to peer %s", node),
			"err", err,
		)
		return
	}

	// Write marshalled operation followed by newline symbol.
	if _, err := fmt.Fprintf(conn, "%s\n", op.String()); err != nil {
		level.Warn(sender.logger).Log(
			"msg", fmt.Sprintf("could not send operation for record %s to peer %s", op.Key, node),
			"err", err,
		)
		return
	}

	// Await the peer's outcome status line.
	status, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil {
		level.Warn(sender.logger).Log(
			"msg", fmt.Sprintf("no outcome status from peer %s for record %s", node, op.Key),
			"err", err,
		)
		return
	}

	level.Debug(sender.logger).Log(
		"msg", fmt.Sprintf("replicated operation for record %s to peer %s", op.Key, node),
		"status", strings.TrimRight(status, "\r\n"),
	)
}

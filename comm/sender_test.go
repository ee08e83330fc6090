package comm_test

import (
	"bufio"
	"fmt"
	"net"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/go-pluto/ceres/comm"
	"github.com/stretchr/testify/assert"
)

// Functions

// acceptOneOperation accepts exactly one sync connection on
// supplied listener, reads one operation line off it, answers
// with a delivered status and reports the line on the
// returned channel.
func acceptOneOperation(t *testing.T, socket net.Listener) chan string {

	received := make(chan string, 1)

	go func() {

		conn, err := socket.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		raw, err := bufio.NewReader(conn).ReadString('\n')
		if err != nil {
			return
		}

		fmt.Fprintf(conn, "%s\n", comm.OutcomeDelivered)

		received <- strings.TrimRight(raw, "\r\n")
	}()

	return received
}

// TestDispatch verifies that an operation reaches every
// reachable peer and that one unreachable peer affects
// neither the other sends nor the dispatching call itself.
func TestDispatch(t *testing.T) {

	logger := log.NewLogfmtLogger(log.NewSyncWriter(os.Stdout))

	// Listen on two ephemeral ports playing peers n2 and n3.
	socketN2, err := net.Listen("tcp", "127.0.0.1:0")
	assert.Nilf(t, err, "failed to listen for peer n2: %v", err)
	defer socketN2.Close()

	socketN3, err := net.Listen("tcp", "127.0.0.1:0")
	assert.Nilf(t, err, "failed to listen for peer n3: %v", err)
	defer socketN3.Close()

	receivedN2 := acceptOneOperation(t, socketN2)
	receivedN3 := acceptOneOperation(t, socketN3)

	// Reserve one more port and close it again so that peer
	// n4 is guaranteed to be unreachable.
	deadSocket, err := net.Listen("tcp", "127.0.0.1:0")
	assert.Nilf(t, err, "failed to reserve dead peer port: %v", err)
	deadAddr := deadSocket.Addr().String()
	deadSocket.Close()

	peers := map[string]string{
		"n1": "unused-self-entry",
		"n2": socketN2.Addr().String(),
		"n3": socketN3.Addr().String(),
		"n4": deadAddr,
	}

	sender := comm.NewSender(logger, "n1", peers, 2*time.Second)

	op := &comm.Operation{
		Origin:  "n1",
		VClock:  map[string]uint32{"n1": 1, "n2": 0, "n3": 0, "n4": 0},
		Kind:    comm.OpCreate,
		Key:     "30123456",
		Payload: `{"id":"30123456"}`,
	}

	// Dispatch must return even though n4 is unreachable.
	sender.Dispatch(op)

	expected := op.String()

	select {
	case raw := <-receivedN2:
		assert.Equalf(t, expected, raw, "expected peer n2 to receive marshalled operation but got: %s", raw)
	case <-time.After(3 * time.Second):
		t.Fatal("peer n2 did not receive the dispatched operation in time")
	}

	select {
	case raw := <-receivedN3:
		assert.Equalf(t, expected, raw, "expected peer n3 to receive marshalled operation but got: %s", raw)
	case <-time.After(3 * time.Second):
		t.Fatal("peer n3 did not receive the dispatched operation in time")
	}
}

package sse

import (
	"context"
	"sync"

	"festival-ticketing/internal/recon"
)

// StatusEventEmitter manages SSE subscriptions for the buyer's
// pending-payment page: one channel group per order number, fed by the
// reconciliation engine on every applied transition.
type StatusEventEmitter struct {
	clients     map[string][]chan recon.Result
	clientMutex sync.RWMutex
}

func NewStatusEventEmitter() *StatusEventEmitter {
	return &StatusEventEmitter{
		clients: make(map[string][]chan recon.Result),
	}
}

// Subscribe adds a client to an order's status events. The channel is
// closed and removed when the context is done.
func (e *StatusEventEmitter) Subscribe(ctx context.Context, orderNumber string) chan recon.Result {
	clientChan := make(chan recon.Result, 4)

	e.clientMutex.Lock()
	e.clients[orderNumber] = append(e.clients[orderNumber], clientChan)
	e.clientMutex.Unlock()

	go func() {
		<-ctx.Done()
		e.removeClient(orderNumber, clientChan)
	}()

	return clientChan
}

// EmitStatusChange broadcasts an applied transition to the order's
// subscribers. Implements recon.StatusChangeNotifier.
func (e *StatusEventEmitter) EmitStatusChange(orderNumber string, result recon.Result) {
	e.clientMutex.RLock()
	clients := e.clients[orderNumber]
	e.clientMutex.RUnlock()

	for _, clientChan := range clients {
		// Non-blocking send so a slow client never stalls reconciliation.
		select {
		case clientChan <- result:
		default:
		}
	}
}

func (e *StatusEventEmitter) removeClient(orderNumber string, clientChan chan recon.Result) {
	e.clientMutex.Lock()
	defer e.clientMutex.Unlock()

	clients := e.clients[orderNumber]
	for i, ch := range clients {
		if ch == clientChan {
			e.clients[orderNumber] = append(clients[:i], clients[i+1:]...)
			close(clientChan)
			break
		}
	}

	if len(e.clients[orderNumber]) == 0 {
		delete(e.clients, orderNumber)
	}
}

// ClientCount returns the number of subscribers for an order.
func (e *StatusEventEmitter) ClientCount(orderNumber string) int {
	e.clientMutex.RLock()
	defer e.clientMutex.RUnlock()
	return len(e.clients[orderNumber])
}

package node

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/mosaicnetworks/attest/src/chain"
	"github.com/mosaicnetworks/attest/src/common"
	"github.com/mosaicnetworks/attest/src/proxy"
	"github.com/sirupsen/logrus"
)

// ErrShutdown is returned for transactions submitted to, or still pending in,
// a node that shuts down.
var ErrShutdown = errors.New("node is shut down")

//Node defines a sequencer node
type Node struct {
	state

	conf   *Config
	logger *logrus.Entry

	key *ecdsa.PrivateKey

	proxy     proxy.AppProxy
	submitCh  chan []byte
	promiseCh chan *TxPromise

	pending []*TxPromise

	blockLock sync.RWMutex
	blocks    map[int]*chain.Block
	lastBlock int
	lastHash  []byte

	shutdownCh   chan struct{}
	doneCh       chan struct{}
	shutdownOnce sync.Once

	start             time.Time
	committedTxs      int
	rejectedTxs       int
	commitErrors      int
	lastStateHash     []byte
	lastCommitLatency time.Duration
}

//NewNode is a factory method that returns a Node instance. key signs the
//blocks and may be nil.
func NewNode(conf *Config, key *ecdsa.PrivateKey, proxy proxy.AppProxy) *Node {
	if conf.BlockSize <= 0 {
		conf.BlockSize = 1
	}

	node := Node{
		conf:       conf,
		logger:     conf.Logger.WithField("component", "node"),
		key:        key,
		proxy:      proxy,
		submitCh:   proxy.SubmitCh(),
		promiseCh:  make(chan *TxPromise),
		blocks:     make(map[int]*chain.Block),
		lastBlock:  -1,
		lastHash:   []byte{},
		shutdownCh: make(chan struct{}),
		doneCh:     make(chan struct{}),
		start:      time.Now(),
	}

	return &node
}

//RunAsync calls Run as a separate thread
func (n *Node) RunAsync() {
	go n.Run()
}

//Run invokes the main loop of the node. It returns after Shutdown.
func (n *Node) Run() {
	defer close(n.doneCh)

	n.logger.WithFields(logrus.Fields{
		"heartbeat":  n.conf.HeartbeatTimeout,
		"block_size": n.conf.BlockSize,
	}).Debug("Run loop")

	//the heartbeat only runs while transactions are pending
	var heartbeat <-chan time.Time

	for {
		select {
		case p := <-n.promiseCh:
			n.pending = append(n.pending, p)
		case t := <-n.submitCh:
			n.pending = append(n.pending, NewTxPromise(t))
		case <-heartbeat:
			heartbeat = nil
			n.commitPending()
			continue
		case <-n.shutdownCh:
			for _, p := range n.pending {
				p.Respond(proxy.TxResult{}, ErrShutdown)
			}
			n.pending = nil
			return
		}

		if len(n.pending) >= n.conf.BlockSize {
			heartbeat = nil
			n.commitPending()
		} else if heartbeat == nil {
			heartbeat = time.After(n.conf.HeartbeatTimeout)
		}
	}
}

// Submit hands a raw transaction to the node and waits until the block that
// contains it is committed, or ctx is done. A transaction whose waiter gave
// up is still committed.
func (n *Node) Submit(ctx context.Context, tx []byte) (proxy.TxResult, error) {
	t := make([]byte, len(tx))
	copy(t, tx)

	p := NewTxPromise(t)

	select {
	case n.promiseCh <- p:
	case <-n.shutdownCh:
		return proxy.TxResult{}, ErrShutdown
	case <-ctx.Done():
		return proxy.TxResult{}, ctx.Err()
	}

	select {
	case resp := <-p.RespCh:
		return resp.Result, resp.Err
	case <-ctx.Done():
		return proxy.TxResult{}, ctx.Err()
	}
}

// commitPending cuts a block from the pending transactions and commits it. If
// the application fails, every transaction of the block gets the error and
// the block index is not consumed. Resubmitting is safe: transactions the
// application already applied return their recorded result.
func (n *Node) commitPending() {
	if len(n.pending) == 0 {
		return
	}

	promises := n.pending
	n.pending = nil

	txs := make([][]byte, len(promises))
	for i, p := range promises {
		txs[i] = p.Tx
	}

	n.blockLock.RLock()
	index := n.lastBlock + 1
	prevHash := n.lastHash
	n.blockLock.RUnlock()

	block := chain.NewBlock(index, prevHash, time.Now().UnixNano(), txs)

	fail := func(err error) {
		n.logger.WithError(err).WithField("index", index).Error("Committing block")
		n.blockLock.Lock()
		n.commitErrors++
		n.blockLock.Unlock()
		for _, p := range promises {
			p.Respond(proxy.TxResult{}, err)
		}
	}

	if n.key != nil {
		if err := block.Sign(n.key); err != nil {
			fail(err)
			return
		}
	}

	start := time.Now()
	resp, err := n.proxy.CommitBlock(*block)
	if err != nil {
		fail(err)
		return
	}
	if len(resp.Results) != len(promises) {
		fail(fmt.Errorf("application returned %d results for %d transactions", len(resp.Results), len(promises)))
		return
	}

	block.StateHash = resp.StateHash
	hash, err := block.Hash()
	if err != nil {
		fail(err)
		return
	}

	n.blockLock.Lock()
	n.blocks[index] = block
	delete(n.blocks, index-n.conf.CacheSize)
	n.lastBlock = index
	n.lastHash = hash
	n.lastStateHash = resp.StateHash
	n.lastCommitLatency = time.Since(start)
	for _, r := range resp.Results {
		if r.OK() {
			n.committedTxs++
		} else {
			n.rejectedTxs++
		}
	}
	n.blockLock.Unlock()

	n.logger.WithFields(logrus.Fields{
		"index":      index,
		"txs":        len(txs),
		"state_hash": common.EncodeToString(resp.StateHash),
	}).Debug("Committed block")

	for i, p := range promises {
		p.Respond(resp.Results[i], nil)
	}
}

//Shutdown stops the run loop. Pending transactions fail with ErrShutdown.
func (n *Node) Shutdown() {
	n.shutdownOnce.Do(func() {
		n.logger.Debug("Shutdown")
		n.setState(Shutdown)
		close(n.shutdownCh)
	})
}

// Wait blocks until the run loop has returned.
func (n *Node) Wait() {
	<-n.doneCh
}

// GetState returns the node's state.
func (n *Node) GetState() State {
	return n.getState()
}

//GetBlock returns a recently committed block
func (n *Node) GetBlock(index int) (*chain.Block, error) {
	n.blockLock.RLock()
	defer n.blockLock.RUnlock()

	block, ok := n.blocks[index]
	if !ok {
		return nil, common.NewStoreErr("Block", common.KeyNotFound, strconv.Itoa(index))
	}
	return block, nil
}

//GetLastBlockIndex returns the index of the last committed block, or -1
func (n *Node) GetLastBlockIndex() int {
	n.blockLock.RLock()
	defer n.blockLock.RUnlock()
	return n.lastBlock
}

//GetStats returns stats
func (n *Node) GetStats() map[string]string {
	n.blockLock.RLock()
	defer n.blockLock.RUnlock()

	timeElapsed := time.Since(n.start)
	txsPerSecond := float64(n.committedTxs) / timeElapsed.Seconds()

	return map[string]string{
		"state":                n.getState().String(),
		"last_block_index":     strconv.Itoa(n.lastBlock),
		"last_state_hash":      common.EncodeToString(n.lastStateHash),
		"committed_txs":        strconv.Itoa(n.committedTxs),
		"rejected_txs":         strconv.Itoa(n.rejectedTxs),
		"commit_errors":        strconv.Itoa(n.commitErrors),
		"txs_per_second":       strconv.FormatFloat(txsPerSecond, 'f', 2, 64),
		"last_commit_latency":  n.lastCommitLatency.String(),
		"heartbeat":            n.conf.HeartbeatTimeout.String(),
		"block_size":           strconv.Itoa(n.conf.BlockSize),
		"time_elapsed_seconds": strconv.FormatFloat(timeElapsed.Seconds(), 'f', 2, 64),
	}
}

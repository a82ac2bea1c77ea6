package spimem

import (
	"github.com/arloliu/go-spimem/internal/util"
)

// Unsync parameters: a READ_INIT declaring unsyncDeclaredLen bytes followed by a
// DATA_ACCESS carrying only unsyncDataLen bytes.
const (
	unsyncAddr        = 0x1000
	unsyncDeclaredLen = 10
	unsyncDataLen     = 2
)

// Unsync deliberately desynchronizes the peer parser by announcing a read whose
// declared length does not match the data-access frame that follows. It is a debug
// and maintenance tool for exercising Resync.
func (r *Runner) Unsync() error {
	initFrame, err := ReadInitFrame(unsyncAddr, unsyncDeclaredLen)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := r.exchange(initFrame); err != nil {
		return err
	}
	if _, err := r.exchange(ReadDataFrame(unsyncDataLen)); err != nil {
		return err
	}
	r.logger.Warn("spimem: peer parser desynchronized on request")

	return nil
}

// Resync forces the peer parser back to its idle, sync-seeking state.
//
// It clocks out maxPeerBufferBytes+InitFrameLen neutral bytes, enough to finish any
// data phase the peer may be stuck in, waits the settle time so the peer can act on
// whatever it latched, and reads the status once to clear it. The cleared flags are
// returned. A maxPeerBufferBytes <= 0 uses the configured peer buffer size.
//
// Resync restores framing only. A write the peer latched before the desync is not
// undone, so the contents of the peer address space are not guaranteed.
func (r *Runner) Resync(maxPeerBufferBytes int) (StatusFlags, error) {
	if maxPeerBufferBytes <= 0 {
		maxPeerBufferBytes = r.cfg.peerBufferSize
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := r.exchange(util.Fill(NeutralByte, maxPeerBufferBytes+InitFrameLen)); err != nil {
		return StatusFlags{}, err
	}

	r.cfg.sleep(r.cfg.settleTime)

	st, err := r.queryStatus()
	if err != nil {
		return StatusFlags{}, err
	}
	r.metrics.incResyncCount()
	r.logger.Info("spimem: peer parser resynchronized",
		"neutralBytes", maxPeerBufferBytes+InitFrameLen,
		"clearedStatus", st.String(),
	)

	return st, nil
}

package simpeer

import (
	"github.com/arloliu/go-spimem/spimem"
)

// clock shifts one byte in each direction. The byte going out was loaded two bytes
// earlier: one stage sits in the transmit holding register, one in the shift register.
func (p *Peer) clock(rx byte) byte {
	out := p.txShift
	p.txShift = p.txHolding
	p.receive(rx)
	p.txHolding = p.loadTx()

	return out
}

func (p *Peer) loadTx() byte {
	switch p.mode {
	case txStatus:
		return p.statusOut
	case txData:
		b := p.buf[p.sdIndex]
		p.sdIndex++
		if p.sdIndex == p.bufSize {
			p.sdIndex = 0
		}
		return b
	default:
		p.sdIndex = 0
		return 0
	}
}

func (p *Peer) receive(rx byte) {
	switch p.state {
	case stateCtrl:
		p.mode = txIdle
		if rx&0xF0 != spimem.OpcodeNibble {
			return
		}
		p.state = stateSync

		switch spimem.Opcode(rx & 0xF3) {
		case spimem.OpDataAccess:
			if p.readTx {
				p.mode = txData
				p.readCnt = 0
				p.nextState = stateReadData
			} else {
				p.writeCnt = 0
				p.nextState = stateWriteData
			}
		case spimem.OpReadInit:
			p.readTx = true
			p.nextState = stateDataLen
		case spimem.OpWriteInit:
			p.readTx = false
			p.nextState = stateDataLen
		case spimem.OpStatusRead:
			p.statusOut = p.takeStatus()
			p.mode = txStatus
			p.nextState = stateWaitStatusSent
		}

	case stateSync:
		p.readCnt++
		if rx&0xF0 == spimem.SyncNibble {
			p.state = p.nextState
			p.dataLenHi = int(rx&0x0F) << 8
		} else {
			p.state = stateCtrl
		}

	case stateDataLen:
		p.dataLen = p.dataLenHi | int(rx)
		if p.dataLen != 0 && p.dataLen <= p.bufSize {
			p.state = stateAddr1
		} else {
			p.state = stateCtrl
		}

	case stateAddr1:
		p.addr = uint16(rx) << 8
		p.state = stateAddr2

	case stateAddr2:
		p.addr |= uint16(rx)
		p.state = stateCtrl
		if p.readTx {
			p.raise(&p.readDataReq)
		}

	case stateReadData:
		p.readCnt++
		if p.readCnt >= p.dataLen {
			p.mode = txIdle
			p.state = stateCtrl
		}

	case stateWriteData:
		p.buf[p.writeCnt] = rx
		p.writeCnt++
		if p.writeCnt >= p.dataLen {
			p.raise(&p.writeDataReq)
			p.state = stateCtrl
		}

	case stateWaitStatusSent:
		p.mode = txIdle
		p.state = stateCtrl

	default:
		p.state = stateCtrl
	}
}

// takeStatus builds the status byte and clears every latched bit.
func (p *Peer) takeStatus() byte {
	st := spimem.StatusFlags{
		ReadDataReady: p.readDataReady,
		WriteComplete: p.writeComplete,
		RxOverrun:     p.rxOverrun,
		TxUnderrun:    p.txUnderrun,
		WriteRegError: p.writeRegError,
		ReadRegError:  p.readRegError,
	}
	p.readDataReady = false
	p.writeComplete = false
	p.rxOverrun = false
	p.txUnderrun = false
	p.writeRegError = false
	p.readRegError = false

	return st.Byte()
}

func (p *Peer) raise(req *bool) {
	*req = true
	p.countdown = p.serviceDelay
}

// serviceLoop is the peer main loop: it copies between the buffer and the register
// map once the service delay has elapsed.
func (p *Peer) serviceLoop() {
	if !p.readDataReq && !p.writeDataReq {
		return
	}
	if p.countdown > 0 {
		p.countdown--
		return
	}

	if p.readDataReq {
		p.readRegError = !p.readRegs()
		p.readDataReq = false
		p.readDataReady = true
	}
	if p.writeDataReq {
		p.writeRegError = !p.writeRegs()
		p.writeDataReq = false
		p.writeComplete = true
	}
}

func (p *Peer) readRegs() bool {
	m, ok := p.mem[p.addr]
	if !ok || p.dataLen > len(m) {
		return false
	}
	copy(p.buf[:p.dataLen], m)

	return true
}

func (p *Peer) writeRegs() bool {
	m, ok := p.mem[p.addr]
	if !ok || p.dataLen > len(m) {
		return false
	}
	copy(m, p.buf[:p.dataLen])

	return true
}

package netadapter

import "encoding/binary"

// iccPacketTag and keyRespPacketTag are the wire tags for in-call
// control and TEK key-response messages from the FNE, per §4.6's
// write_key_req/set_*_icc_callback contract.
const (
	iccPacketTag     = "RICC"
	keyRespPacketTag = "RKEY"
)

// RequestTEK sends a key request for the configured TEK algorithm/key
// id, per §4.6's write_key_req.
func (c *Client) RequestTEK(algo byte, kid uint16) error {
	pkt := make([]byte, 7)
	copy(pkt[0:4], "RKRQ")
	pkt[4] = algo
	binary.BigEndian.PutUint16(pkt[5:7], kid)
	return c.WriteRaw(pkt)
}

// dispatchControl handles RICC/RKEY messages that dispatch() routes here
// instead of into a per-protocol receive channel.
func (c *Client) dispatchControl(data []byte) bool {
	if len(data) < 4 {
		return false
	}
	switch string(data[0:4]) {
	case iccPacketTag:
		c.handleICC(data)
		return true
	case keyRespPacketTag:
		c.handleKeyResponse(data)
		return true
	}
	return false
}

// ICC message layout: tag(4) protocol(1) dstId(4 BE). protocol
// distinguishes which of the three callback sets (dmr/p25/analog) to
// invoke, since REJECT_TRAFFIC is scoped per protocol network.
func (c *Client) handleICC(data []byte) {
	if len(data) < 9 {
		return
	}
	proto := data[4]
	dstID := binary.BigEndian.Uint32(data[5:9])

	c.cbMu.RLock()
	defer c.cbMu.RUnlock()
	switch proto {
	case 1:
		if c.dmrICCCB != nil {
			c.dmrICCCB(dstID)
		}
	case 2:
		if c.p25ICCCB != nil {
			c.p25ICCCB(dstID)
		}
	case 3:
		if c.analogICCCB != nil {
			c.analogICCCB(dstID)
		}
	}
}

// Key-response layout: tag(4) algo(1) kid(2 BE) key(remaining bytes).
func (c *Client) handleKeyResponse(data []byte) {
	if len(data) < 7 {
		return
	}
	algo := data[4]
	kid := binary.BigEndian.Uint16(data[5:7])
	key := append([]byte(nil), data[7:]...)

	c.cbMu.RLock()
	cb := c.keyResponseCB
	c.cbMu.RUnlock()
	if cb != nil {
		cb(algo, kid, key)
	}
}

package callstate

// ICCCommand is an in-call control message issued by the FNE, per §4.9.
type ICCCommand struct {
	Type  string // "REJECT_TRAFFIC"; others are ignored in the core
	DstID uint32
}

// HandleICC implements the §4.9 in-call control handler: a
// REJECT_TRAFFIC for the configured dstId forces the active call to end
// and marks it ignored. Any other command, or a REJECT_TRAFFIC for a
// different dstId, is a no-op.
//
// callEnd is invoked with the call's current (srcId, dstId) when the
// call is force-ended.
func HandleICC(cfg Config, st *State, cmd ICCCommand, callEnd func(srcID, dstID uint32)) {
	if cmd.Type != "REJECT_TRAFFIC" || cmd.DstID != cfg.DstID {
		return
	}
	st.IgnoreCall = true
	if st.Active {
		callEnd(st.SrcID, st.DstID)
	}
}

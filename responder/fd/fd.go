// Package fd implements the Firmware Device responder state machine
// (spec §4.7): it drives a device through Idle -> LearnComponents ->
// ReadyXfer -> Download -> Verify -> Apply -> Activate in response to
// update-agent (UA) requests and its own progress ticks, calling out
// to an Ops implementation for everything device-specific (component
// enumeration, image data consumption, verify/apply/activate).
//
// This reshapes firmware_fd.h's pldm_fd_ops C callback table (out
// pointers, bare result codes, a caller-owned pldm_fd context struct)
// into a Go interface with value and error returns, and folds the
// scattered pldm_fd_* driver functions into methods on Responder.
package fd

import (
	"time"

	"github.com/openbmc/go-pldm/fwup"
	"github.com/openbmc/go-pldm/pldm"
)

// State is one of the FD update-mode states (spec §4.7).
type State uint8

const (
	StateIdle State = iota
	StateLearnComponents
	StateReadyXfer
	StateDownload
	StateVerify
	StateApply
	StateActivate
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateLearnComponents:
		return "LearnComponents"
	case StateReadyXfer:
		return "ReadyXfer"
	case StateDownload:
		return "Download"
	case StateVerify:
		return "Verify"
	case StateApply:
		return "Apply"
	case StateActivate:
		return "Activate"
	default:
		return "Unknown"
	}
}

func (s State) wire() uint8 {
	switch s {
	case StateIdle:
		return fwup.StateIdle
	case StateLearnComponents:
		return fwup.StateLearnComponents
	case StateReadyXfer:
		return fwup.StateReadyXfer
	case StateDownload:
		return fwup.StateDownload
	case StateVerify:
		return fwup.StateVerify
	case StateApply:
		return fwup.StateApply
	case StateActivate:
		return fwup.StateActivate
	default:
		return fwup.StateIdle
	}
}

// BaselineTransferSize is the floor negotiated max-transfer may never
// go below, regardless of what Ops.TransferSize returns.
const BaselineTransferSize uint32 = 64

// DefaultT1 and DefaultT2 are the idle-timeout and retry-period
// defaults (spec §3.6).
const (
	DefaultT1 = 120 * time.Second
	DefaultT2 = 1 * time.Second
)

// Component describes the component currently being updated,
// reshaped from UpdateComponentRequest's wire fields plus a running
// Size used for download-offset bookkeeping.
type Component struct {
	Classification      uint16
	Identifier           uint16
	ClassificationIndex  uint8
	ComparisonStamp      uint32
	Size                 uint32
	UpdateOptionFlags    uint32
	Version              pldm.VersionString
}

// Ops is the device-specific half of the FD responder, mirroring
// firmware_fd.h's pldm_fd_ops one callback at a time.
type Ops interface {
	// DeviceIdentifiers returns the descriptors QueryDeviceIdentifiers
	// replies with (ops.device_identifiers).
	DeviceIdentifiers() ([]pldm.Descriptor, error)

	// Components returns the device's component table, used to answer
	// GetFirmwareParameters (ops.components).
	Components() ([]fwup.ComponentParameterEntry, error)

	// ImagesetVersions returns the active and pending imageset version
	// strings (ops.imageset_versions).
	ImagesetVersions() (active, pending pldm.VersionString, err error)

	// UpdateComponent validates a component PassComponentTable or
	// UpdateComponent names, returning the PLDM FWUP component
	// response code (ops.update_component). update is false for
	// PassComponentTable (advisory) and true for UpdateComponent
	// (binding).
	UpdateComponent(comp Component, update bool) (responseCode uint8, err error)

	// TransferSize negotiates the max transfer size given the UA's
	// advertised maximum; the responder clamps the result into
	// [BaselineTransferSize, uaMaxTransferSize] (ops.transfer_size).
	TransferSize(uaMaxTransferSize uint32) uint32

	// FirmwareData consumes one chunk of image data at offset,
	// returning a PLDM FWUP transfer result code (ops.firmware_data).
	FirmwareData(offset uint32, data []byte, comp Component) (resultCode uint8)

	// Verify drives one step of image verification. pending true means
	// verification is still running asynchronously and no message
	// should be sent yet (ops.verify).
	Verify(comp Component) (pending bool, progressPercent uint8, resultCode uint8)

	// Apply drives one step of applying the verified image
	// (ops.apply).
	Apply(comp Component) (pending bool, progressPercent uint8, resultCode uint8)

	// Activate switches to the newly applied firmware, returning an
	// estimated completion time for self-contained activation
	// (ops.activate).
	Activate(selfContained bool) (estimatedTime uint16, resultCode uint8)

	// CancelUpdateComponent aborts work in progress on comp
	// (ops.cancel_update_component).
	CancelUpdateComponent(comp Component)
}

type reqState uint8

const (
	reqUnused reqState = iota
	reqReady
	reqSent
	reqFailed
)

// outboundReq tracks the single outstanding FD-initiated request
// (spec §3.6, §4.7).
type outboundReq struct {
	state      reqState
	instanceID uint8
	command    uint8
	sentTime   time.Time
}

// Message is a PLDM message the responder wants delivered to the UA,
// either a reply to an incoming request or an FD-initiated request
// emitted by Progress.
type Message struct {
	Header pldm.Header
	Body   []byte
}

// Responder drives one FD instance through an update session (spec
// §3.6, §4.7). It is not safe for concurrent use; per §5 it is a
// single-writer state object driven by a caller's message/tick loop.
type Responder struct {
	ops Ops

	state     State
	prevState State
	reason    uint8

	comp           Component
	offset         uint32
	downloadDone   bool
	downloadResult uint8
	progress       uint8

	lastVerifyResult uint8
	lastApplyResult  uint8

	req            outboundReq
	lastInstanceID uint8

	uaAddr string
	uaSet  bool

	maxTransfer uint32

	t1, t2 time.Duration
	lastUA time.Time
}

// New builds a Responder in state Idle with default timeouts.
func New(ops Ops) *Responder {
	return &Responder{
		ops:         ops,
		maxTransfer: BaselineTransferSize,
		t1:          DefaultT1,
		t2:          DefaultT2,
	}
}

func (r *Responder) SetT1(d time.Duration) { r.t1 = d }
func (r *Responder) SetT2(d time.Duration) { r.t2 = d }

func (r *Responder) CurrentState() State    { return r.state }
func (r *Responder) PreviousState() State   { return r.prevState }
func (r *Responder) Reason() uint8          { return r.reason }
func (r *Responder) ProgressPercent() uint8 { return r.progress }
func (r *Responder) Offset() uint32         { return r.offset }

func replyHeader(hdr pldm.Header) pldm.Header {
	hdr.Request = false
	hdr.Datagram = false
	return hdr
}

func (r *Responder) ccOnlyMessage(hdr pldm.Header, cc pldm.Completion) *Message {
	return &Message{Header: replyHeader(hdr), Body: []byte{uint8(cc)}}
}

func (r *Responder) nextInstanceID() uint8 {
	r.lastInstanceID = (r.lastInstanceID + 1) % 32
	return r.lastInstanceID
}

// HandleMessage processes one incoming PLDM message: either a UA
// request (hdr.Request true), which is answered synchronously, or a
// reply to an FD-initiated request (hdr.Request false), which is
// correlated against the single outstanding req and otherwise
// rejected (spec §4.7's "response is accepted iff remote == UA
// address, instance ID matches, command matches").
func (r *Responder) HandleMessage(now time.Time, from string, hdr pldm.Header, body []byte) (*Message, error) {
	if hdr.Type != fwup.PLDMType {
		if hdr.Request {
			return r.ccOnlyMessage(hdr, pldm.CcErrorInvalidPLDMType), nil
		}
		return nil, ErrUnexpectedResponse
	}
	if hdr.Request {
		return r.handleRequest(now, from, hdr, body)
	}
	return r.handleReply(now, from, hdr, body)
}

func (r *Responder) handleRequest(now time.Time, from string, hdr pldm.Header, body []byte) (*Message, error) {
	switch hdr.Command {
	case fwup.CmdQueryDeviceIdentifiers:
		return r.handleQueryDeviceIdentifiers(hdr, body)
	case fwup.CmdGetFirmwareParameters:
		return r.handleGetFirmwareParameters(hdr, body)
	case fwup.CmdRequestUpdate:
		return r.handleRequestUpdate(now, from, hdr, body)
	case fwup.CmdPassComponentTable:
		return r.handlePassComponentTable(now, hdr, body)
	case fwup.CmdUpdateComponent:
		return r.handleUpdateComponent(now, hdr, body)
	case fwup.CmdGetStatus:
		return r.handleGetStatus(hdr, body)
	case fwup.CmdCancelUpdateComponent:
		return r.handleCancelUpdateComponent(now, hdr, body)
	case fwup.CmdCancelUpdate:
		return r.handleCancelUpdate(now, hdr, body)
	case fwup.CmdActivateFirmware:
		return r.handleActivateFirmware(now, hdr, body)
	default:
		return r.ccOnlyMessage(hdr, pldm.CcErrorUnsupportedCmd), nil
	}
}

func (r *Responder) handleReply(now time.Time, from string, hdr pldm.Header, body []byte) (*Message, error) {
	if r.req.state != reqSent || !r.uaSet || from != r.uaAddr ||
		hdr.InstanceID != r.req.instanceID || hdr.Command != r.req.command {
		return nil, ErrUnexpectedResponse
	}
	r.lastUA = now
	switch hdr.Command {
	case fwup.CmdRequestFirmwareData:
		return nil, r.handleRequestFirmwareDataReply(body)
	case fwup.CmdTransferComplete:
		return nil, r.handleTransferCompleteReply(body)
	case fwup.CmdVerifyComplete:
		return nil, r.handleVerifyCompleteReply(body)
	case fwup.CmdApplyComplete:
		return nil, r.handleApplyCompleteReply(body)
	default:
		return nil, ErrUnexpectedResponse
	}
}

// handleRequestFirmwareDataReply processes the UA's reply to a
// RequestFirmwareData request. A callback failure (ops.FirmwareData
// returning a non-success result, or the UA's reply itself carrying a
// non-success completion code) does not fail the transfer here: per
// spec §4.7, "component callbacks' errors are tunnelled into the next
// TransferComplete/VerifyComplete/ApplyComplete request's result byte
// rather than raised locally". It marks the download done with the
// failing result, and the next Progress tick sends TransferComplete
// carrying that result (grounded on fd.c's pldm_fd_handle_fwdata_resp,
// which sets req.complete/req.result rather than failing in place).
func (r *Responder) handleRequestFirmwareDataReply(body []byte) error {
	resp, err := fwup.DecodeRequestFirmwareDataResponse(body)
	if err != nil {
		// Malformed response: drop it and let T2 resend the request,
		// same as fd.c's fwdata_resp handler returning -EOVERFLOW on a
		// bad payload size without touching req state.
		return err
	}
	if resp.CompletionCode == pldm.Completion(fwup.TransferResultRetry) {
		// Leave offset and req untouched; T2 drives the retry.
		return nil
	}
	r.req.state = reqReady
	if resp.CompletionCode != pldm.Success {
		r.downloadDone = true
		r.downloadResult = fwup.CommonErrorGenericError
		return nil
	}
	result := r.ops.FirmwareData(r.offset, resp.Data, r.comp)
	if result != fwup.TransferResultSuccess {
		r.downloadDone = true
		r.downloadResult = result
		return nil
	}
	r.offset += uint32(len(resp.Data))
	if r.offset >= r.comp.Size {
		r.downloadDone = true
		r.downloadResult = fwup.TransferResultSuccess
	}
	return nil
}

// handleTransferCompleteReply correlates the UA's ack of our
// TransferComplete request. The completion code it carries is
// disregarded (fd.c: "Disregard the response completion code"); the
// outcome instead depends on the result this responder itself sent,
// stashed in downloadResult. Success advances to Verify; failure keeps
// the FD in Download with the outstanding request marked failed, so it
// now awaits a UA-initiated cancel (fd.c's
// pldm_fd_handle_transfer_complete_resp).
func (r *Responder) handleTransferCompleteReply(body []byte) error {
	if _, err := fwup.DecodeTransferCompleteResponse(body); err != nil {
		return err
	}
	if r.downloadResult != fwup.TransferResultSuccess {
		r.req.state = reqFailed
		return nil
	}
	r.prevState = r.state
	r.state = StateVerify
	r.progress = 0
	r.req = outboundReq{}
	return nil
}

func (r *Responder) handleVerifyCompleteReply(body []byte) error {
	if _, err := fwup.DecodeVerifyCompleteResponse(body); err != nil {
		return err
	}
	if r.lastVerifyResult != fwup.VerifyResultSuccess {
		r.req.state = reqFailed
		return nil
	}
	r.prevState = r.state
	r.state = StateApply
	r.progress = 0
	r.req = outboundReq{}
	return nil
}

func (r *Responder) handleApplyCompleteReply(body []byte) error {
	if _, err := fwup.DecodeApplyCompleteResponse(body); err != nil {
		return err
	}
	if r.lastApplyResult != fwup.ApplyResultSuccess {
		r.req.state = reqFailed
		return nil
	}
	r.prevState = r.state
	r.state = StateReadyXfer
	r.progress = 0
	r.req = outboundReq{}
	return nil
}

func (r *Responder) handleQueryDeviceIdentifiers(hdr pldm.Header, body []byte) (*Message, error) {
	if err := fwup.DecodeQueryDeviceIdentifiersRequest(body); err != nil {
		return r.ccOnlyMessage(hdr, pldm.MapErrCompletion(err)), nil
	}
	descriptors, err := r.ops.DeviceIdentifiers()
	if err != nil {
		return r.ccOnlyMessage(hdr, pldm.Completion(fwup.CommonErrorGenericError)), nil
	}
	resp := fwup.QueryDeviceIdentifiersResponse{
		CompletionCode:   pldm.Success,
		DescriptorsCount: uint8(len(descriptors)),
		Descriptors:      descriptors,
	}
	size := 6
	for _, d := range descriptors {
		size += 4 + len(d.Data)
	}
	buf := make([]byte, size)
	n, err := fwup.EncodeQueryDeviceIdentifiersResponse(buf, resp)
	if err != nil {
		return nil, err
	}
	return &Message{Header: replyHeader(hdr), Body: buf[:n]}, nil
}

func (r *Responder) handleGetFirmwareParameters(hdr pldm.Header, body []byte) (*Message, error) {
	if err := fwup.DecodeGetFirmwareParametersRequest(body); err != nil {
		return r.ccOnlyMessage(hdr, pldm.MapErrCompletion(err)), nil
	}
	active, pending, err := r.ops.ImagesetVersions()
	if err != nil {
		return r.ccOnlyMessage(hdr, pldm.Completion(fwup.CommonErrorGenericError)), nil
	}
	comps, err := r.ops.Components()
	if err != nil {
		return r.ccOnlyMessage(hdr, pldm.Completion(fwup.CommonErrorGenericError)), nil
	}

	resp := fwup.GetFirmwareParametersResponse{
		CompletionCode:         pldm.Success,
		ActiveImageSetVersion:  active,
		PendingImageSetVersion: pending,
		Components:             comps,
	}
	size := 11 + len(active.Str) + len(pending.Str)
	for _, c := range comps {
		size += 15 + len(c.ActiveVersion.Str) + len(c.PendingVersion.Str)
	}
	buf := make([]byte, size)
	n, err := fwup.EncodeGetFirmwareParametersResponse(buf, resp)
	if err != nil {
		return nil, err
	}
	return &Message{Header: replyHeader(hdr), Body: buf[:n]}, nil
}

func (r *Responder) handleRequestUpdate(now time.Time, from string, hdr pldm.Header, body []byte) (*Message, error) {
	req, err := fwup.DecodeRequestUpdateRequest(body)
	if err != nil {
		return r.ccOnlyMessage(hdr, pldm.MapErrCompletion(err)), nil
	}
	if r.state != StateIdle {
		return r.ccOnlyMessage(hdr, fwup.CcAlreadyInUpdateMode), nil
	}

	negotiated := r.ops.TransferSize(req.MaximumTransferSize)
	if negotiated < BaselineTransferSize {
		negotiated = BaselineTransferSize
	}
	if negotiated > req.MaximumTransferSize {
		negotiated = req.MaximumTransferSize
	}
	r.maxTransfer = negotiated
	r.uaAddr = from
	r.uaSet = true
	r.lastUA = now
	r.prevState = r.state
	r.state = StateLearnComponents
	r.reason = fwup.ReasonNone

	resp := fwup.RequestUpdateResponse{CompletionCode: pldm.Success}
	buf := make([]byte, 5)
	n, err := fwup.EncodeRequestUpdateResponse(buf, resp)
	if err != nil {
		return nil, err
	}
	return &Message{Header: replyHeader(hdr), Body: buf[:n]}, nil
}

func (r *Responder) handlePassComponentTable(now time.Time, hdr pldm.Header, body []byte) (*Message, error) {
	if r.state != StateLearnComponents {
		return r.ccOnlyMessage(hdr, pldm.Completion(fwup.CommonErrorInvalidState)), nil
	}
	req, err := fwup.DecodePassComponentTableRequest(body)
	if err != nil {
		return r.ccOnlyMessage(hdr, pldm.MapErrCompletion(err)), nil
	}

	comp := Component{
		Classification:      req.Classification,
		Identifier:           req.Identifier,
		ClassificationIndex:  req.ClassificationIndex,
		ComparisonStamp:      req.ComparisonStamp,
		Version:              req.Version,
	}
	respCode, err := r.ops.UpdateComponent(comp, false)
	if err != nil {
		return r.ccOnlyMessage(hdr, pldm.Completion(fwup.CommonErrorGenericError)), nil
	}

	r.lastUA = now
	if req.TransferFlag&fwup.TransferFlagEnd != 0 {
		r.prevState = r.state
		r.state = StateReadyXfer
	}

	resp := fwup.PassComponentTableResponse{
		CompletionCode:    pldm.Success,
		ComponentResponse: respCode,
	}
	buf := make([]byte, 3)
	n, err := fwup.EncodePassComponentTableResponse(buf, resp)
	if err != nil {
		return nil, err
	}
	return &Message{Header: replyHeader(hdr), Body: buf[:n]}, nil
}

func (r *Responder) handleUpdateComponent(now time.Time, hdr pldm.Header, body []byte) (*Message, error) {
	if r.state != StateReadyXfer {
		return r.ccOnlyMessage(hdr, pldm.Completion(fwup.CommonErrorInvalidState)), nil
	}
	req, err := fwup.DecodeUpdateComponentRequest(body)
	if err != nil {
		return r.ccOnlyMessage(hdr, pldm.MapErrCompletion(err)), nil
	}

	comp := Component{
		Classification:      req.Classification,
		Identifier:           req.Identifier,
		ClassificationIndex:  req.ClassificationIndex,
		ComparisonStamp:      req.ComparisonStamp,
		Size:                 req.ImageSize,
		UpdateOptionFlags:    req.UpdateOptionFlags,
		Version:              req.Version,
	}
	respCode, err := r.ops.UpdateComponent(comp, true)
	if err != nil {
		return r.ccOnlyMessage(hdr, pldm.Completion(fwup.CommonErrorGenericError)), nil
	}
	if respCode != fwup.CompCanBeUpdated {
		resp := fwup.UpdateComponentResponse{CompletionCode: pldm.Success, CompatibilityResponse: 1, CompatibilityResponseCode: respCode}
		buf := make([]byte, 9)
		n, eerr := fwup.EncodeUpdateComponentResponse(buf, resp)
		if eerr != nil {
			return nil, eerr
		}
		return &Message{Header: replyHeader(hdr), Body: buf[:n]}, nil
	}

	r.comp = comp
	r.offset = 0
	r.downloadDone = false
	r.downloadResult = fwup.TransferResultSuccess
	r.progress = 0
	r.req = outboundReq{}
	r.prevState = r.state
	r.state = StateDownload
	r.lastUA = now

	resp := fwup.UpdateComponentResponse{CompletionCode: pldm.Success}
	buf := make([]byte, 9)
	n, err := fwup.EncodeUpdateComponentResponse(buf, resp)
	if err != nil {
		return nil, err
	}
	return &Message{Header: replyHeader(hdr), Body: buf[:n]}, nil
}

func (r *Responder) auxState() uint8 {
	switch r.req.state {
	case reqSent:
		return fwup.AuxStateInProgress
	case reqFailed:
		return fwup.AuxStateTransferFail
	default:
		return fwup.AuxStateIdle
	}
}

func (r *Responder) handleGetStatus(hdr pldm.Header, body []byte) (*Message, error) {
	if err := fwup.DecodeGetStatusRequest(body); err != nil {
		return r.ccOnlyMessage(hdr, pldm.MapErrCompletion(err)), nil
	}
	resp := fwup.GetStatusResponse{
		CompletionCode:  pldm.Success,
		CurrentState:    r.state.wire(),
		PreviousState:   r.prevState.wire(),
		AuxState:        r.auxState(),
		ProgressPercent: r.progress,
		ReasonCode:      r.reason,
	}
	buf := make([]byte, 10)
	n, err := fwup.EncodeGetStatusResponse(buf, resp)
	if err != nil {
		return nil, err
	}
	return &Message{Header: replyHeader(hdr), Body: buf[:n]}, nil
}

func (r *Responder) handleCancelUpdateComponent(now time.Time, hdr pldm.Header, body []byte) (*Message, error) {
	if err := fwup.DecodeCancelUpdateComponentRequest(body); err != nil {
		return r.ccOnlyMessage(hdr, pldm.MapErrCompletion(err)), nil
	}
	switch r.state {
	case StateDownload, StateVerify, StateApply:
		r.ops.CancelUpdateComponent(r.comp)
		r.prevState = r.state
		r.state = StateReadyXfer
		r.reason = fwup.ReasonCancelUpdateComp
		r.req = outboundReq{}
		r.progress = 0
	}
	r.lastUA = now
	buf := make([]byte, 1)
	n, err := fwup.EncodeCancelUpdateComponentResponse(buf, pldm.Success)
	if err != nil {
		return nil, err
	}
	return &Message{Header: replyHeader(hdr), Body: buf[:n]}, nil
}

func (r *Responder) handleCancelUpdate(now time.Time, hdr pldm.Header, body []byte) (*Message, error) {
	if err := fwup.DecodeCancelUpdateRequest(body); err != nil {
		return r.ccOnlyMessage(hdr, pldm.MapErrCompletion(err)), nil
	}
	var bitmap uint64
	var indication uint8
	if r.state != StateIdle && r.state != StateLearnComponents && r.state != StateReadyXfer {
		r.ops.CancelUpdateComponent(r.comp)
		indication = 1
		bitmap = 1
	}
	r.prevState = r.state
	r.state = StateIdle
	r.reason = fwup.ReasonCancelUpdate
	r.req = outboundReq{}
	r.progress = 0
	r.uaSet = false
	r.lastUA = now

	resp := fwup.CancelUpdateResponse{
		CompletionCode:                     pldm.Success,
		NonFunctioningComponentIndication:  indication,
		NonFunctioningComponentBitmap:      bitmap,
	}
	buf := make([]byte, 10)
	n, err := fwup.EncodeCancelUpdateResponse(buf, resp)
	if err != nil {
		return nil, err
	}
	return &Message{Header: replyHeader(hdr), Body: buf[:n]}, nil
}

func (r *Responder) handleActivateFirmware(now time.Time, hdr pldm.Header, body []byte) (*Message, error) {
	if r.state != StateReadyXfer {
		return r.ccOnlyMessage(hdr, pldm.Completion(fwup.CommonErrorInvalidState)), nil
	}
	req, err := fwup.DecodeActivateFirmwareRequest(body)
	if err != nil {
		return r.ccOnlyMessage(hdr, pldm.MapErrCompletion(err)), nil
	}

	estTime, resultCode := r.ops.Activate(req.SelfContainedActivationRequest)
	if resultCode != fwup.CompResponseSuccess {
		return r.ccOnlyMessage(hdr, pldm.Completion(fwup.CommonErrorGenericError)), nil
	}

	r.prevState = r.state
	r.state = StateIdle
	r.reason = fwup.ReasonActivateFirmware
	r.uaSet = false
	r.lastUA = now

	resp := fwup.ActivateFirmwareResponse{CompletionCode: pldm.Success, EstimatedTimeForSelfContainedActivation: estTime}
	buf := make([]byte, 3)
	n, err := fwup.EncodeActivateFirmwareResponse(buf, resp)
	if err != nil {
		return nil, err
	}
	return &Message{Header: replyHeader(hdr), Body: buf[:n]}, nil
}

// readyForNewRequest reports whether the outbound req slot can be
// used by Progress: either nothing is in flight, or the current
// request's T2 retry deadline has elapsed.
func (r *Responder) readyForNewRequest(now time.Time) bool {
	switch r.req.state {
	case reqUnused, reqReady:
		return true
	case reqSent:
		return now.Sub(r.req.sentTime) >= r.t2
	default: // reqFailed: await a UA cancel
		return false
	}
}

// beginRequest sends the given command, allocating a fresh instance
// ID unless this is a same-command retry of the still-outstanding
// request (spec §4.7: "retries keep the same instance id").
func (r *Responder) beginRequest(now time.Time, cmd uint8, body []byte) *Message {
	if !(r.req.state == reqSent && r.req.command == cmd) {
		r.req.instanceID = r.nextInstanceID()
	}
	r.req.state = reqSent
	r.req.command = cmd
	r.req.sentTime = now
	hdr := pldm.Header{InstanceID: r.req.instanceID, Request: true, Type: fwup.PLDMType, Command: cmd}
	return &Message{Header: hdr, Body: body}
}

// Progress advances the state machine by one tick: it checks the T1
// idle timeout, then drives whichever of Download/Verify/Apply is
// current, returning an outbound message when one needs sending.
func (r *Responder) Progress(now time.Time) (*Message, error) {
	if r.state != StateIdle && r.uaSet && !r.lastUA.IsZero() && now.Sub(r.lastUA) >= r.t1 {
		return r.timeoutToIdle(), nil
	}
	switch r.state {
	case StateDownload:
		return r.tickDownload(now), nil
	case StateVerify:
		return r.tickVerify(now), nil
	case StateApply:
		return r.tickApply(now), nil
	default:
		return nil, nil
	}
}

func (r *Responder) timeoutToIdle() *Message {
	if r.state == StateDownload || r.state == StateVerify || r.state == StateApply {
		r.ops.CancelUpdateComponent(r.comp)
	}
	r.prevState = r.state
	r.state = StateIdle
	r.reason = fwup.ReasonTimeout
	r.req = outboundReq{}
	r.progress = 0
	r.uaSet = false
	return nil
}

func (r *Responder) tickDownload(now time.Time) *Message {
	if !r.readyForNewRequest(now) {
		return nil
	}
	if r.req.state == reqFailed {
		return nil
	}
	if r.downloadDone {
		buf := make([]byte, 1)
		fwup.EncodeTransferCompleteRequest(buf, fwup.TransferCompleteRequest{TransferResult: r.downloadResult})
		return r.beginRequest(now, fwup.CmdTransferComplete, buf)
	}
	remaining := r.comp.Size - r.offset
	size := r.maxTransfer
	if remaining < size {
		size = remaining
	}
	buf := make([]byte, 8)
	fwup.EncodeRequestFirmwareDataRequest(buf, fwup.RequestFirmwareDataRequest{Offset: r.offset, Length: size})
	return r.beginRequest(now, fwup.CmdRequestFirmwareData, buf)
}

func (r *Responder) tickVerify(now time.Time) *Message {
	if !r.readyForNewRequest(now) {
		return nil
	}
	if r.req.state == reqSent {
		// Retrying an already-decided VerifyComplete send.
		buf := make([]byte, 1)
		fwup.EncodeVerifyCompleteRequest(buf, fwup.VerifyCompleteRequest{VerifyResult: r.lastVerifyResult})
		return r.beginRequest(now, fwup.CmdVerifyComplete, buf)
	}

	pending, percent, result := r.ops.Verify(r.comp)
	r.progress = percent
	if pending {
		return nil
	}
	r.lastVerifyResult = result
	buf := make([]byte, 1)
	fwup.EncodeVerifyCompleteRequest(buf, fwup.VerifyCompleteRequest{VerifyResult: result})
	return r.beginRequest(now, fwup.CmdVerifyComplete, buf)
}

func (r *Responder) tickApply(now time.Time) *Message {
	if !r.readyForNewRequest(now) {
		return nil
	}
	if r.req.state == reqSent {
		buf := make([]byte, 3)
		fwup.EncodeApplyCompleteRequest(buf, fwup.ApplyCompleteRequest{ApplyResult: r.lastApplyResult})
		return r.beginRequest(now, fwup.CmdApplyComplete, buf)
	}

	pending, percent, result := r.ops.Apply(r.comp)
	r.progress = percent
	if pending {
		return nil
	}
	r.lastApplyResult = result
	buf := make([]byte, 3)
	fwup.EncodeApplyCompleteRequest(buf, fwup.ApplyCompleteRequest{ApplyResult: result})
	return r.beginRequest(now, fwup.CmdApplyComplete, buf)
}

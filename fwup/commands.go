package fwup

import "github.com/openbmc/go-pldm/pldm"

// Command codes for PLDM Type 5 (Firmware Update), spec §4.4. Only the
// commands actually exercised by the FD responder state machine (§4.7)
// are in scope; GetPackageData, GetDeviceMetaData, GetMetaData and
// ActivatePendingComponentImageSet are out of scope and have no codec
// here.

// PLDMType is the DSP0267 PLDM message type number for Firmware Update.
const PLDMType uint8 = 5

const (
	CmdQueryDeviceIdentifiers uint8 = 0x01
	CmdGetFirmwareParameters  uint8 = 0x02
	CmdRequestUpdate          uint8 = 0x10
	CmdPassComponentTable     uint8 = 0x13
	CmdUpdateComponent        uint8 = 0x14
	CmdRequestFirmwareData    uint8 = 0x15
	CmdTransferComplete       uint8 = 0x16
	CmdVerifyComplete         uint8 = 0x17
	CmdApplyComplete          uint8 = 0x18
	CmdActivateFirmware       uint8 = 0x1A
	CmdGetStatus              uint8 = 0x1B
	CmdCancelUpdateComponent  uint8 = 0x1C
	CmdCancelUpdate           uint8 = 0x1D
)

// TransferFlag values for PassComponentTable / multipart transfers.
const (
	TransferFlagStart    uint8 = 0x01
	TransferFlagMiddle   uint8 = 0x02
	TransferFlagEnd      uint8 = 0x04
	TransferFlagStartEnd uint8 = 0x05
)

// Component response/result codes, spec §4.7's "PLDM FWUP result codes".
const (
	CompCanBeUpdated    uint8 = 0x00
	CompResponseSuccess uint8 = 0x00

	TransferResultSuccess uint8 = 0x00
	TransferResultRetry   uint8 = 0x09

	VerifyResultSuccess uint8 = 0x00
	ApplyResultSuccess  uint8 = 0x00

	// Common error codes shared across TransferComplete, VerifyComplete
	// and ApplyComplete when something goes wrong outside the
	// dedicated result enums.
	CommonErrorInvalidState    uint8 = 0x70
	CommonErrorUnableToInitate uint8 = 0x71
	CommonErrorTimeout         uint8 = 0x72
	CommonErrorGenericError    uint8 = 0x73
)

// CcAlreadyInUpdateMode is the vendor-defined RequestUpdate completion
// code an FD already in an update session returns (spec §4.7: Idle +
// RequestUpdate(already updating) -> Idle).
const CcAlreadyInUpdateMode pldm.Completion = 0x87

// FD update-mode state codes reported by GetStatus (spec §4.7).
const (
	StateIdle            uint8 = 1
	StateLearnComponents uint8 = 2
	StateReadyXfer       uint8 = 3
	StateDownload        uint8 = 4
	StateVerify          uint8 = 5
	StateApply           uint8 = 6
	StateActivate        uint8 = 7
)

// AuxState codes reported by GetStatus.
const (
	AuxStateIdle         uint8 = 0
	AuxStateInProgress   uint8 = 1
	AuxStateWaitingData  uint8 = 2
	AuxStateTransferFail uint8 = 3
)

// GetStatus reason codes for why the FD left an update state.
const (
	ReasonNone              uint8 = 0
	ReasonTimeout           uint8 = 1
	ReasonActivateFirmware  uint8 = 2
	ReasonCancelUpdate      uint8 = 3
	ReasonCancelUpdateComp  uint8 = 4
	ReasonFDInitiatedCancel uint8 = 5
)

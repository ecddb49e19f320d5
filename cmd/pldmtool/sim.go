// sim.go drives responder/fd.Responder against canned request bytes,
// a minimal in-process stand-in for a real device used by "pldmtool
// sim" for demonstration and smoke-testing.
package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/openbmc/go-pldm/fwup"
	"github.com/openbmc/go-pldm/pldm"
	"github.com/openbmc/go-pldm/responder/fd"
)

const simUA = "mctp:8:1"

// simOps is a canned fd.Ops backing a single fixed-size component,
// always succeeding, so the driver below can walk the whole update
// session without any real hardware underneath.
type simOps struct {
	image []byte
}

func (s *simOps) DeviceIdentifiers() ([]pldm.Descriptor, error) {
	// Type 0x0002 is PLDM's UUID descriptor type (DSP0267 table 17).
	return []pldm.Descriptor{{Type: 0x0002, Data: []byte("pldmtool-sim-device-uuid0000000")}}, nil
}

func (s *simOps) Components() ([]fwup.ComponentParameterEntry, error) { return nil, nil }

func (s *simOps) ImagesetVersions() (pldm.VersionString, pldm.VersionString, error) {
	return pldm.VersionString{}, pldm.VersionString{}, nil
}

func (s *simOps) UpdateComponent(fd.Component, bool) (uint8, error) {
	return fwup.CompCanBeUpdated, nil
}

func (s *simOps) TransferSize(uaMax uint32) uint32 {
	if uaMax > 256 {
		return 256
	}
	return uaMax
}

func (s *simOps) FirmwareData(offset uint32, data []byte, _ fd.Component) uint8 {
	return fwup.TransferResultSuccess
}

func (s *simOps) Verify(fd.Component) (bool, uint8, uint8) {
	return false, 100, fwup.VerifyResultSuccess
}

func (s *simOps) Apply(fd.Component) (bool, uint8, uint8) {
	return false, 100, fwup.ApplyResultSuccess
}

func (s *simOps) Activate(bool) (uint16, uint8) { return 0, fwup.CompResponseSuccess }

func (s *simOps) CancelUpdateComponent(fd.Component) {}

// simRequest builds a request header for the canned driver; instance
// IDs just increment, matching how a real UA would avoid reuse.
func simRequest(cmd uint8, instanceID uint8) pldm.Header {
	return pldm.Header{InstanceID: instanceID, Request: true, Type: fwup.PLDMType, Command: cmd}
}

func printMessage(label string, msg *fd.Message) {
	if msg == nil {
		fmt.Printf("%s: (no message)\n", label)
		return
	}
	fmt.Printf("%s: cmd=0x%02x instance=%d request=%v len(body)=%d\n",
		label, msg.Header.Command, msg.Header.InstanceID, msg.Header.Request, len(msg.Body))
}

// runSim drives a whole update session end to end against an
// in-process Responder, printing each exchanged message and the
// resulting state. It exercises the same request/reply shapes a real
// UA would send, built with the fwup codecs rather than hand-rolled
// bytes.
func runSim(imageSize uint32) error {
	ops := &simOps{image: make([]byte, imageSize)}
	for i := range ops.image {
		ops.image[i] = byte(i)
	}
	r := fd.New(ops)
	now := time.Now()

	reqBuf := make([]byte, 32)
	n, err := fwup.EncodeRequestUpdateRequest(reqBuf, fwup.RequestUpdateRequest{
		MaximumTransferSize:            256,
		NumberOfComponents:             1,
		MaxOutstandingTransferRequests: 1,
	})
	if err != nil {
		return fmt.Errorf("encode RequestUpdate: %w", err)
	}
	msg, err := r.HandleMessage(now, simUA, simRequest(fwup.CmdRequestUpdate, 1), reqBuf[:n])
	if err != nil {
		return fmt.Errorf("RequestUpdate: %w", err)
	}
	printMessage("RequestUpdate reply", msg)
	fmt.Printf("state: %v\n", r.CurrentState())

	pctBuf := make([]byte, 32)
	n, err = fwup.EncodePassComponentTableRequest(pctBuf, fwup.PassComponentTableRequest{
		TransferFlag:   fwup.TransferFlagStartEnd,
		Classification: 0x0a,
		Identifier:     1,
	})
	if err != nil {
		return fmt.Errorf("encode PassComponentTable: %w", err)
	}
	msg, err = r.HandleMessage(now, simUA, simRequest(fwup.CmdPassComponentTable, 2), pctBuf[:n])
	if err != nil {
		return fmt.Errorf("PassComponentTable: %w", err)
	}
	printMessage("PassComponentTable reply", msg)
	fmt.Printf("state: %v\n", r.CurrentState())

	ucBuf := make([]byte, 40)
	n, err = fwup.EncodeUpdateComponentRequest(ucBuf, fwup.UpdateComponentRequest{
		Classification: 0x0a,
		Identifier:     1,
		ImageSize:      imageSize,
	})
	if err != nil {
		return fmt.Errorf("encode UpdateComponent: %w", err)
	}
	msg, err = r.HandleMessage(now, simUA, simRequest(fwup.CmdUpdateComponent, 3), ucBuf[:n])
	if err != nil {
		return fmt.Errorf("UpdateComponent: %w", err)
	}
	printMessage("UpdateComponent reply", msg)
	fmt.Printf("state: %v\n", r.CurrentState())

	for r.CurrentState() == fd.StateDownload {
		out, err := r.Progress(now)
		if err != nil {
			return fmt.Errorf("Progress(download): %w", err)
		}
		if out == nil {
			return fmt.Errorf("Progress(download) produced no message")
		}
		printMessage("FD->UA", out)

		switch out.Header.Command {
		case fwup.CmdRequestFirmwareData:
			req, err := fwup.DecodeRequestFirmwareDataRequest(out.Body)
			if err != nil {
				return fmt.Errorf("decode RequestFirmwareData: %w", err)
			}
			chunk := ops.image[req.Offset : req.Offset+req.Length]
			respBuf := make([]byte, 1+len(chunk))
			n, err := fwup.EncodeRequestFirmwareDataResponse(respBuf, fwup.RequestFirmwareDataResponse{
				CompletionCode: pldm.Success,
				Data:           chunk,
			})
			if err != nil {
				return fmt.Errorf("encode RequestFirmwareData response: %w", err)
			}
			replyHdr := out.Header
			replyHdr.Request = false
			if _, err := r.HandleMessage(now, simUA, replyHdr, respBuf[:n]); err != nil {
				return fmt.Errorf("RequestFirmwareData reply: %w", err)
			}
		case fwup.CmdTransferComplete:
			respBuf := make([]byte, 1)
			n, err := fwup.EncodeTransferCompleteResponse(respBuf, pldm.Success)
			if err != nil {
				return fmt.Errorf("encode TransferComplete response: %w", err)
			}
			replyHdr := out.Header
			replyHdr.Request = false
			if _, err := r.HandleMessage(now, simUA, replyHdr, respBuf[:n]); err != nil {
				return fmt.Errorf("TransferComplete reply: %w", err)
			}
		default:
			return fmt.Errorf("unexpected outbound command 0x%02x during download", out.Header.Command)
		}
	}
	fmt.Printf("state: %v\n", r.CurrentState())

	verifyMsg, err := r.Progress(now)
	if err != nil {
		return fmt.Errorf("Progress(verify): %w", err)
	}
	printMessage("FD->UA", verifyMsg)
	vRespBuf := make([]byte, 1)
	n, err = fwup.EncodeVerifyCompleteResponse(vRespBuf, pldm.Success)
	if err != nil {
		return fmt.Errorf("encode VerifyComplete response: %w", err)
	}
	replyHdr := verifyMsg.Header
	replyHdr.Request = false
	if _, err := r.HandleMessage(now, simUA, replyHdr, vRespBuf[:n]); err != nil {
		return fmt.Errorf("VerifyComplete reply: %w", err)
	}
	fmt.Printf("state: %v\n", r.CurrentState())

	applyMsg, err := r.Progress(now)
	if err != nil {
		return fmt.Errorf("Progress(apply): %w", err)
	}
	printMessage("FD->UA", applyMsg)
	aRespBuf := make([]byte, 1)
	n, err = fwup.EncodeApplyCompleteResponse(aRespBuf, pldm.Success)
	if err != nil {
		return fmt.Errorf("encode ApplyComplete response: %w", err)
	}
	replyHdr = applyMsg.Header
	replyHdr.Request = false
	if _, err := r.HandleMessage(now, simUA, replyHdr, aRespBuf[:n]); err != nil {
		return fmt.Errorf("ApplyComplete reply: %w", err)
	}
	fmt.Printf("state: %v\n", r.CurrentState())

	actBuf := make([]byte, 1)
	n, err = fwup.EncodeActivateFirmwareRequest(actBuf, fwup.ActivateFirmwareRequest{})
	if err != nil {
		return fmt.Errorf("encode ActivateFirmware: %w", err)
	}
	msg, err = r.HandleMessage(now, simUA, simRequest(fwup.CmdActivateFirmware, 4), actBuf[:n])
	if err != nil {
		return fmt.Errorf("ActivateFirmware: %w", err)
	}
	printMessage("ActivateFirmware reply", msg)
	fmt.Printf("final state: %v, reason: %d\n", r.CurrentState(), r.Reason())
	return nil
}

func newSimCmd() *cobra.Command {
	var imageSize uint32
	cmd := &cobra.Command{
		Use:   "sim",
		Short: "Drive an in-process FD responder through a canned update session",
		Long:  "Runs responder/fd.Responder against canned request bytes built with the fwup codecs, for demonstration and smoke-testing without real hardware",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSim(imageSize)
		},
	}
	cmd.Flags().Uint32Var(&imageSize, "image-size", 300, "size in bytes of the canned component image to transfer")
	return cmd
}

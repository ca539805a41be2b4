// Copyright 2024 The go-ethereum Authors
// This file is part of the go-ethereum library.
//
// The go-ethereum library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-ethereum library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-ethereum library. If not, see <http://www.gnu.org/licenses/>.

package primitives

import (
	"fmt"
	"io"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
)

// TrustedOperationStatusCode is the wire discriminant of a TrustedOperationStatus.
type TrustedOperationStatusCode uint8

const (
	StatusSubmitted         TrustedOperationStatusCode = 0
	StatusFuture            TrustedOperationStatusCode = 1
	StatusReady             TrustedOperationStatusCode = 2
	StatusBroadcast         TrustedOperationStatusCode = 3
	StatusInSidechainBlock  TrustedOperationStatusCode = 4
	StatusRetracted         TrustedOperationStatusCode = 5
	StatusFinalityTimeout   TrustedOperationStatusCode = 6
	StatusFinalized         TrustedOperationStatusCode = 7
	StatusUsurped           TrustedOperationStatusCode = 8
	StatusDropped           TrustedOperationStatusCode = 9
	StatusInvalid           TrustedOperationStatusCode = 10
	StatusTopExecuted       TrustedOperationStatusCode = 11
	StatusSuccessorExecuted TrustedOperationStatusCode = 12
)

var statusNames = map[TrustedOperationStatusCode]string{
	StatusSubmitted:         "Submitted",
	StatusFuture:            "Future",
	StatusReady:             "Ready",
	StatusBroadcast:         "Broadcast",
	StatusInSidechainBlock:  "InSidechainBlock",
	StatusRetracted:         "Retracted",
	StatusFinalityTimeout:   "FinalityTimeout",
	StatusFinalized:         "Finalized",
	StatusUsurped:           "Usurped",
	StatusDropped:           "Dropped",
	StatusInvalid:           "Invalid",
	StatusTopExecuted:       "TopExecuted",
	StatusSuccessorExecuted: "SuccessorExecuted",
}

func (c TrustedOperationStatusCode) String() string {
	if name, ok := statusNames[c]; ok {
		return name
	}
	return fmt.Sprintf("Unknown(%d)", uint8(c))
}

// TrustedOperationStatus is the lifecycle state of one trusted operation.
// BlockHash is only meaningful for InSidechainBlock; Response and DoWatch
// only for TopExecuted.
type TrustedOperationStatus struct {
	Code      TrustedOperationStatusCode
	BlockHash common.Hash
	Response  []byte
	DoWatch   bool
}

func Submitted() TrustedOperationStatus { return TrustedOperationStatus{Code: StatusSubmitted} }
func Future() TrustedOperationStatus    { return TrustedOperationStatus{Code: StatusFuture} }
func Ready() TrustedOperationStatus     { return TrustedOperationStatus{Code: StatusReady} }
func Broadcast() TrustedOperationStatus { return TrustedOperationStatus{Code: StatusBroadcast} }
func Retracted() TrustedOperationStatus { return TrustedOperationStatus{Code: StatusRetracted} }
func Finalized() TrustedOperationStatus { return TrustedOperationStatus{Code: StatusFinalized} }
func Usurped() TrustedOperationStatus   { return TrustedOperationStatus{Code: StatusUsurped} }
func Dropped() TrustedOperationStatus   { return TrustedOperationStatus{Code: StatusDropped} }
func Invalid() TrustedOperationStatus   { return TrustedOperationStatus{Code: StatusInvalid} }

func FinalityTimeout() TrustedOperationStatus {
	return TrustedOperationStatus{Code: StatusFinalityTimeout}
}

func SuccessorExecuted() TrustedOperationStatus {
	return TrustedOperationStatus{Code: StatusSuccessorExecuted}
}

func InSidechainBlock(block common.Hash) TrustedOperationStatus {
	return TrustedOperationStatus{Code: StatusInSidechainBlock, BlockHash: block}
}

func TopExecuted(response []byte, doWatch bool) TrustedOperationStatus {
	return TrustedOperationStatus{Code: StatusTopExecuted, Response: response, DoWatch: doWatch}
}

// IsTerminal reports whether a watcher stops receiving updates after this status.
func (s TrustedOperationStatus) IsTerminal() bool {
	switch s.Code {
	case StatusFinalityTimeout, StatusFinalized, StatusUsurped, StatusDropped,
		StatusInvalid, StatusSuccessorExecuted:
		return true
	case StatusTopExecuted:
		return !s.DoWatch
	default:
		return false
	}
}

// ContinueWatching is the inverse of IsTerminal.
func (s TrustedOperationStatus) ContinueWatching() bool {
	return !s.IsTerminal()
}

func (s TrustedOperationStatus) String() string {
	switch s.Code {
	case StatusInSidechainBlock:
		return fmt.Sprintf("%s(%s)", s.Code, s.BlockHash.TerminalString())
	case StatusTopExecuted:
		return fmt.Sprintf("%s(%d bytes, watch=%t)", s.Code, len(s.Response), s.DoWatch)
	default:
		return s.Code.String()
	}
}

// EncodeRLP writes the status as [code, payload...].
func (s TrustedOperationStatus) EncodeRLP(w io.Writer) error {
	switch s.Code {
	case StatusInSidechainBlock:
		return rlp.Encode(w, []interface{}{uint8(s.Code), s.BlockHash})
	case StatusTopExecuted:
		return rlp.Encode(w, []interface{}{uint8(s.Code), s.Response, s.DoWatch})
	default:
		if _, ok := statusNames[s.Code]; !ok {
			return fmt.Errorf("%w: unknown operation status %d", ErrDecode, s.Code)
		}
		return rlp.Encode(w, []interface{}{uint8(s.Code)})
	}
}

// DecodeRLP implements rlp.Decoder.
func (s *TrustedOperationStatus) DecodeRLP(st *rlp.Stream) error {
	if _, err := st.List(); err != nil {
		return err
	}
	code, err := st.Uint8()
	if err != nil {
		return err
	}
	*s = TrustedOperationStatus{Code: TrustedOperationStatusCode(code)}
	switch s.Code {
	case StatusInSidechainBlock:
		if err := st.Decode(&s.BlockHash); err != nil {
			return err
		}
	case StatusTopExecuted:
		if s.Response, err = st.Bytes(); err != nil {
			return err
		}
		if s.DoWatch, err = st.Bool(); err != nil {
			return err
		}
	default:
		if _, ok := statusNames[s.Code]; !ok {
			return fmt.Errorf("%w: unknown operation status %d", ErrDecode, code)
		}
	}
	return st.ListEnd()
}

// DirectRequestStatusCode is the wire discriminant of a DirectRequestStatus.
type DirectRequestStatusCode uint8

const (
	DirectOk                     DirectRequestStatusCode = 0
	DirectTrustedOperationStatus DirectRequestStatusCode = 1
	DirectError                  DirectRequestStatusCode = 2
	DirectProcessing             DirectRequestStatusCode = 3
)

func (c DirectRequestStatusCode) String() string {
	switch c {
	case DirectOk:
		return "Ok"
	case DirectTrustedOperationStatus:
		return "TrustedOperationStatus"
	case DirectError:
		return "Error"
	case DirectProcessing:
		return "Processing"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(c))
	}
}

// DirectRequestStatus is the status carried by every RPC return value.
type DirectRequestStatus struct {
	Code      DirectRequestStatusCode
	Hash      common.Hash            // Processing and TrustedOperationStatus
	Operation TrustedOperationStatus // TrustedOperationStatus only
}

func StatusOk() DirectRequestStatus    { return DirectRequestStatus{Code: DirectOk} }
func StatusError() DirectRequestStatus { return DirectRequestStatus{Code: DirectError} }

func StatusProcessing(hash common.Hash) DirectRequestStatus {
	return DirectRequestStatus{Code: DirectProcessing, Hash: hash}
}

func StatusOperation(status TrustedOperationStatus, hash common.Hash) DirectRequestStatus {
	return DirectRequestStatus{Code: DirectTrustedOperationStatus, Hash: hash, Operation: status}
}

// WatchedHash returns the operation hash a status refers to, if any.
func (s DirectRequestStatus) WatchedHash() (common.Hash, bool) {
	switch s.Code {
	case DirectProcessing, DirectTrustedOperationStatus:
		return s.Hash, true
	}
	return common.Hash{}, false
}

func (s DirectRequestStatus) String() string {
	switch s.Code {
	case DirectProcessing:
		return fmt.Sprintf("Processing(%s)", s.Hash.TerminalString())
	case DirectTrustedOperationStatus:
		return fmt.Sprintf("TrustedOperationStatus(%s, %s)", s.Operation, s.Hash.TerminalString())
	default:
		return s.Code.String()
	}
}

// EncodeRLP implements rlp.Encoder.
func (s DirectRequestStatus) EncodeRLP(w io.Writer) error {
	switch s.Code {
	case DirectOk, DirectError:
		return rlp.Encode(w, []interface{}{uint8(s.Code)})
	case DirectProcessing:
		return rlp.Encode(w, []interface{}{uint8(s.Code), s.Hash})
	case DirectTrustedOperationStatus:
		return rlp.Encode(w, []interface{}{uint8(s.Code), s.Operation, s.Hash})
	default:
		return fmt.Errorf("%w: unknown request status %d", ErrDecode, s.Code)
	}
}

// DecodeRLP implements rlp.Decoder.
func (s *DirectRequestStatus) DecodeRLP(st *rlp.Stream) error {
	if _, err := st.List(); err != nil {
		return err
	}
	code, err := st.Uint8()
	if err != nil {
		return err
	}
	*s = DirectRequestStatus{Code: DirectRequestStatusCode(code)}
	switch s.Code {
	case DirectOk, DirectError:
	case DirectProcessing:
		if err := st.Decode(&s.Hash); err != nil {
			return err
		}
	case DirectTrustedOperationStatus:
		if err := st.Decode(&s.Operation); err != nil {
			return err
		}
		if err := st.Decode(&s.Hash); err != nil {
			return err
		}
	default:
		return fmt.Errorf("%w: unknown request status %d", ErrDecode, code)
	}
	return st.ListEnd()
}

package serial

import "testing"

func TestHandlerDispatchesImageState(t *testing.T) {
	h := &Handler{
		State: func() (ImageStateResponse, error) {
			return ImageStateResponse{Rc: RcOK, Images: []ImageSlotState{
				{Image: 0, Slot: 0, Version: "1.2.3", Bootable: true, Active: true, Confirmed: true},
			}}, nil
		},
	}

	req := Header{Op: OpRead, Group: GroupImage, ID: IDImageState, Seq: 1}
	framed, err := EncodePacket(req, nil)
	if err != nil {
		t.Fatalf("EncodePacket: %v", err)
	}

	rspFramed, err := h.Dispatch(framed)
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	rspHdr, rspBody, err := DecodePacket(rspFramed)
	if err != nil {
		t.Fatalf("DecodePacket: %v", err)
	}
	if rspHdr.Op != OpReadRsp {
		t.Fatalf("response op = %v, want OpReadRsp", rspHdr.Op)
	}

	var rsp ImageStateResponse
	if err := unmarshalBody(rspBody, &rsp); err != nil {
		t.Fatalf("unmarshalBody: %v", err)
	}
	if rsp.Rc != RcOK || len(rsp.Images) != 1 || rsp.Images[0].Version != "1.2.3" {
		t.Fatalf("unexpected response body: %+v", rsp)
	}
}

func TestHandlerReturnsNotSupportedForUnknownGroup(t *testing.T) {
	h := &Handler{}
	req := Header{Op: OpRead, Group: GroupPerUser, ID: 0}
	framed, err := EncodePacket(req, nil)
	if err != nil {
		t.Fatalf("EncodePacket: %v", err)
	}

	rspFramed, err := h.Dispatch(framed)
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	_, rspBody, err := DecodePacket(rspFramed)
	if err != nil {
		t.Fatalf("DecodePacket: %v", err)
	}
	var rsp UploadResponse
	if err := unmarshalBody(rspBody, &rsp); err != nil {
		t.Fatalf("unmarshalBody: %v", err)
	}
	if rsp.Rc != RcENotSup {
		t.Fatalf("Rc = %d, want RcENotSup", rsp.Rc)
	}
}

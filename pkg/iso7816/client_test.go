package iso7816

import (
	"bytes"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"

	"github.com/dariakors/pin-code-verification-command/pkg/tlv"
)

// scriptedCard answers each Transmit with the next canned response.
type scriptedCard struct {
	responses [][]byte
	received  [][]byte
	err       error
}

func (s *scriptedCard) Transmit(cmd []byte) ([]byte, error) {
	s.received = append(s.received, append([]byte(nil), cmd...))
	if s.err != nil {
		return nil, s.err
	}
	if len(s.responses) == 0 {
		return []byte{0x6F, 0x00}, nil
	}
	resp := s.responses[0]
	s.responses = s.responses[1:]
	return resp, nil
}

func TestClient_Send(t *testing.T) {
	cls, _ := NewClass(0x00)
	verify := NewVerifyCommand(cls, VerifyQualifierPIN1, []byte{0xEF, 0x08})

	t.Run("Single exchange", func(t *testing.T) {
		card := &scriptedCard{responses: [][]byte{{0x63, 0xC2}}}

		trace, err := NewClient(card).Send(verify)
		if err != nil {
			t.Fatalf("Send() error = %v", err)
		}
		if len(trace) != 1 || trace.Status() != 0x63C2 {
			t.Errorf("trace = %d steps, status %s", len(trace), trace.Status().Hex())
		}
		if !bytes.Equal(card.received[0], tlv.Hex("00200001 02 EF08")) {
			t.Errorf("sent %X", card.received[0])
		}
	})

	t.Run("61XX triggers GET RESPONSE", func(t *testing.T) {
		card := &scriptedCard{responses: [][]byte{
			{0x61, 0x02},
			{0xAA, 0xBB, 0x90, 0x00},
		}}

		trace, err := NewClient(card).Send(verify)
		if err != nil {
			t.Fatalf("Send() error = %v", err)
		}
		if len(trace) != 2 || !trace.IsSuccess() {
			t.Fatalf("trace = %d steps, success %v", len(trace), trace.IsSuccess())
		}
		if !bytes.Equal(card.received[1], tlv.Hex("00 C0 00 00 02")) {
			t.Errorf("GET RESPONSE = %X", card.received[1])
		}
		if !bytes.Equal(trace.Last().Response.Data, []byte{0xAA, 0xBB}) {
			t.Errorf("data = %X", trace.Last().Response.Data)
		}
	})

	t.Run("6CXX resends with Le", func(t *testing.T) {
		card := &scriptedCard{responses: [][]byte{
			{0x6C, 0x04},
			{0x90, 0x00},
		}}

		trace, err := NewClient(card).Send(verify)
		if err != nil {
			t.Fatalf("Send() error = %v", err)
		}
		if len(trace) != 2 {
			t.Fatalf("trace = %d steps, want 2", len(trace))
		}
		if !bytes.Equal(card.received[1], tlv.Hex("00200001 02 EF08 04")) {
			t.Errorf("resent %X", card.received[1])
		}
	})

	t.Run("Endless follow-ups are cut", func(t *testing.T) {
		card := &scriptedCard{}
		for i := 0; i < maxProtocolSteps+1; i++ {
			card.responses = append(card.responses, []byte{0x61, 0x01})
		}

		if _, err := NewClient(card).Send(verify); err == nil {
			t.Error("expected protocol error")
		}
	})

	t.Run("Transport error", func(t *testing.T) {
		boom := errors.New("reader removed")
		_, err := NewClient(&scriptedCard{err: boom}).Send(verify)
		if !errors.Is(err, boom) {
			t.Errorf("Send() error = %v, want %v", err, boom)
		}
	})

	t.Run("Short response", func(t *testing.T) {
		card := &scriptedCard{responses: [][]byte{{0x90}}}
		if _, err := NewClient(card).Send(verify); err == nil {
			t.Error("expected parse error")
		}
	})
}

func TestClient_Logging(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	cls, _ := NewClass(0x00)
	card := &scriptedCard{responses: [][]byte{{0x90, 0x00}}}

	if _, err := NewClient(card).WithLogger(logger).Send(VerifyInquiry(cls)); err != nil {
		t.Fatal(err)
	}

	entry := hook.LastEntry()
	if entry == nil || entry.Message != "apdu exchanged" {
		t.Fatalf("unexpected log entry: %+v", entry)
	}
	if entry.Data["command"] != "00200000" || entry.Data["sw"] != "9000" {
		t.Errorf("fields = %v", entry.Data)
	}
}

package container

import "testing"

func TestRawIsIdentity(t *testing.T) {
	in := []byte{1, 2, 3}
	out := Raw(in)
	if len(out) != 3 || out[0] != 1 {
		t.Fatalf("want identity, got %v", out)
	}
}

func TestBinPrependsFourByteHeader(t *testing.T) {
	out := Bin(0o1000, []byte{0xAA, 0xBB})
	if len(out) != 6 {
		t.Fatalf("want 6 bytes, got %d", len(out))
	}
	if out[0] != byte(0o1000&0xFF) || out[1] != byte(0o1000>>8) {
		t.Fatalf("bad link-address header: %v", out[:2])
	}
	if out[2] != 2 || out[3] != 0 {
		t.Fatalf("bad length header: %v", out[2:4])
	}
}

func TestSavControlBlockAndBitmap(t *testing.T) {
	linkAddr := 0o1000
	body := make([]byte, 512)
	out := Sav(linkAddr, linkAddr+len(body), body)
	if len(out) != 512+len(body) {
		t.Fatalf("want 1024 bytes, got %d", len(out))
	}
	if out[32] != byte(linkAddr&0xFF) || out[33] != byte(linkAddr>>8) {
		t.Fatalf("bad link address in control block")
	}
	if out[34] != byte(0o1000&0xFF) || out[35] != byte(0o1000>>8) {
		t.Fatalf("bad fixed 01000 field")
	}
	// link-addr covers block 1 only (01000 / 512 == 1; (01000+512+511)/512 == 2).
	if out[240] == 0 {
		t.Fatal("want bitmap byte at offset 240 to mark the occupied block")
	}
}

func TestTurboWavProducesValidRIFFHeader(t *testing.T) {
	out := TurboWav(0o1000, "TEST", []byte{1, 2, 3})
	if string(out[:4]) != "RIFF" || string(out[8:12]) != "WAVE" {
		t.Fatalf("bad RIFF header: %v", out[:12])
	}
}

func TestWavProducesValidRIFFHeader(t *testing.T) {
	out := Wav(0o1000, "TEST", []byte{1, 2, 3})
	if string(out[:4]) != "RIFF" || string(out[8:12]) != "WAVE" {
		t.Fatalf("bad RIFF header: %v", out[:12])
	}
}

package cfhd

import (
	"errors"
	"testing"
)

func TestNewChannelStoreGeometry(t *testing.T) {
	// 1920x1080 luma: 240x135 lowpass, allocated rows rounded up to 136.
	c := newChannelStore(1920, 1080)
	if got := c.bands[0]; got.wantWidth != 240 || got.wantHeight != 135 ||
		got.allocWidth != 240 || got.allocHeight != 136 {
		t.Errorf("lowpass = %+v", got)
	}

	tests := []struct {
		level, orientation int
		x0, y0             int
		w, h               int
	}{
		{0, 1, 240, 0, 240, 135},
		{0, 2, 0, 136, 240, 135},
		{0, 3, 240, 136, 240, 135},
		{1, 1, 480, 0, 480, 270},
		{2, 3, 960, 544, 960, 540},
	}
	for _, tt := range tests {
		b := c.bands[bandIndex(tt.level, tt.orientation)]
		if b.x0 != tt.x0 || b.y0 != tt.y0 || b.wantWidth != tt.w || b.wantHeight != tt.h {
			t.Errorf("band (%d,%d) = %+v, want origin (%d,%d) extent %dx%d",
				tt.level, tt.orientation, b, tt.x0, tt.y0, tt.w, tt.h)
		}
	}
	if w, h := c.levelSize(numLevels); w != 1920 || h != 1080 {
		t.Errorf("levelSize(%d) = %dx%d, want 1920x1080", numLevels, w, h)
	}
}

func TestBandIndex(t *testing.T) {
	seen := make(map[int]bool)
	for l := range numLevels {
		for o := 1; o <= 3; o++ {
			i := bandIndex(l, o)
			if i < 1 || i >= numBands || seen[i] {
				t.Errorf("bandIndex(%d, %d) = %d", l, o, i)
			}
			seen[i] = true
		}
	}
}

func TestSetExtent(t *testing.T) {
	tests := []struct {
		name    string
		band    int
		w, h    int
		wantErr bool
	}{
		{"lowpass", 0, 8, 4, false},
		{"level 2 highpass", bandIndex(2, 2), 32, 16, false},
		{"too narrow", 0, 1, 4, true},
		{"too short", bandIndex(1, 1), 16, 1, true},
		{"wider than allocation", 0, 9, 4, true},
		{"fits but wrong size", bandIndex(1, 3), 14, 8, true},
		{"taller than allocation", bandIndex(0, 2), 8, 200, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newChannelStore(64, 32)
			err := c.setExtent(tt.band, tt.w, tt.h)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidSubbandDimensions) {
					t.Errorf("got %v, want ErrInvalidSubbandDimensions", err)
				}
				if c.bands[tt.band].width != 0 {
					t.Error("rejected extent was recorded")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if b := c.bands[tt.band]; b.width != tt.w || b.height != tt.h {
				t.Errorf("extent = %dx%d, want %dx%d", b.width, b.height, tt.w, tt.h)
			}
		})
	}
}

func TestCoeffStoreReuse(t *testing.T) {
	s := allocateStore(YUV422P10, 64, 32)
	if len(s.channels) != 3 {
		t.Fatalf("got %d channels, want 3", len(s.channels))
	}
	if s.channels[0].width != 64 || s.channels[1].width != 32 {
		t.Errorf("channel widths = %d, %d; want 64, 32", s.channels[0].width, s.channels[1].width)
	}
	if !s.matches(YUV422P10, 64, 32) {
		t.Error("store does not match its own geometry")
	}
	if s.matches(RGBP12, 64, 32) || s.matches(YUV422P10, 64, 40) {
		t.Error("store matches a different geometry")
	}
	var none *coeffStore
	if none.matches(YUV422P10, 64, 32) {
		t.Error("nil store matches")
	}

	if err := s.channels[2].setExtent(0, 4, 4); err != nil {
		t.Fatal(err)
	}
	s.reset()
	if s.channels[2].bands[0].width != 0 {
		t.Error("reset kept a declared extent")
	}

	rgba := allocateStore(RGBAP12, 64, 32)
	if len(rgba.channels) != 4 {
		t.Errorf("RGBA store has %d channels, want 4", len(rgba.channels))
	}
}

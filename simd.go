// Copyright 2025 go-cfhd Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cfhd

import (
	"sync"

	"github.com/ajroetker/go-highway/hwy"
	"github.com/ajroetker/go-highway/hwy/contrib/image"
)

// loadPlane copies a width x height sample plane into the top-left corner
// of img. Rows and columns past the plane up to the given padded extent
// repeat the last sample so the transform sees no artificial edge.
func loadPlane[S, D hwy.Integers](img *image.Image[D], src []S, stride, width, height, padW, padH int) {
	for y := range padH {
		sy := min(y, height-1)
		in := src[sy*stride : sy*stride+width]
		out := img.Row(y)[:padW]
		for x, v := range in {
			out[x] = D(v)
		}
		last := D(in[width-1])
		for x := width; x < padW; x++ {
			out[x] = last
		}
	}
}

// liftBufs holds the int32 scratch lines used by one lifting pass.
// Lines are sized for the widest level of a channel and reused across
// rows, levels and frames.
type liftBufs struct {
	low, high []int32
	even, odd []int32
	line      []int32
}

// ensure grows the scratch lines to cover n lowpass/highpass pairs.
func (b *liftBufs) ensure(n int) {
	if cap(b.low) < n {
		b.low = make([]int32, n)
		b.high = make([]int32, n)
		b.even = make([]int32, n)
		b.odd = make([]int32, n)
		b.line = make([]int32, 2*n)
	}
	b.low = b.low[:n]
	b.high = b.high[:n]
	b.even = b.even[:n]
	b.odd = b.odd[:n]
	b.line = b.line[:2*n]
}

var liftBufPool = sync.Pool{New: func() any { return new(liftBufs) }}

func getLiftBufs(n int) *liftBufs {
	buf := liftBufPool.Get().(*liftBufs)
	buf.ensure(n)
	return buf
}

func putLiftBufs(buf *liftBufs) {
	liftBufPool.Put(buf)
}

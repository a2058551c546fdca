package isel

import "testing"

func TestUdivMagic(t *testing.T) {
	divisors := []uint32{
		0x80000001, 0xfffffffe, 0xffffffff, 641, 6700417, 1000000007,
		3 << 20, 7 << 28, 0x55555555, 0xaaaaaaab,
	}
	for d := uint32(1); d <= 300; d++ {
		divisors = append(divisors, d)
	}
	dividends := []uint32{
		0, 1, 2, 3, 7, 100, 1000, 65535, 65536, 1 << 31, (1 << 31) - 1, (1 << 31) + 1,
		0xfffffffe, 0xffffffff, 0xdeadbeef, 0x12345678, 4294967291,
	}

	for _, d := range divisors {
		info := udivMagic(d)
		ns := append(dividends, d-1, d, d+1, 2*d-1, 2*d, ^uint32(0)/d*d, ^uint32(0)/d*d-1)
		for _, n := range ns {
			if got, want := info.apply(n), n/d; got != want {
				t.Fatalf("%d / %d = %d, want %d (%+v)", n, d, got, want, info)
			}
		}
	}
}

func TestUdivMagicShape(t *testing.T) {
	tests := []struct {
		d    uint32
		want udivInfo
	}{
		{1, udivInfo{}},
		{2, udivInfo{PostShift: 1}},
		{1 << 31, udivInfo{PostShift: 31}},
		{3, udivInfo{Multiplier: 0xaaaaaaab, PostShift: 1}},
		{5, udivInfo{Multiplier: 0xcccccccd, PostShift: 2}},
		{7, udivInfo{Increment: true, Multiplier: 0x92492492, PostShift: 2}},
	}
	for _, tt := range tests {
		if got := udivMagic(tt.d); got != tt.want {
			t.Errorf("udivMagic(%d) = %+v, want %+v", tt.d, got, tt.want)
		}
	}
}

func TestUdivMagicZero(t *testing.T) {
	defer func() {
		ce, ok := recover().(*CompileError)
		if !ok || ce.Kind != ErrInvariant {
			t.Errorf("recovered %v, want an invariant error", ce)
		}
	}()
	udivMagic(0)
}

package transport

import (
	"errors"
	"sync"

	"github.com/sarchlab/dramcal/hooking"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"
)

var _ = Describe("Hooked", func() {
	var (
		mockCtrl *gomock.Controller
		inner    *MockRegisterAccess
		hooked   *Hooked
		seen     []Access
		poses    []*hooking.HookPos
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		inner = NewMockRegisterAccess(mockCtrl)
		hooked = NewHooked("link", inner)
		seen = nil
		poses = nil

		hooked.AcceptHook(hooking.HookFunc(func(ctx hooking.HookCtx) {
			seen = append(seen, ctx.Item.(Access))
			poses = append(poses, ctx.Pos)
		}))
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should report reads with their value", func() {
		inner.EXPECT().Read(uint32(0x8000)).Return(uint32(3), nil)

		v, err := hooked.Read(0x8000)

		Expect(err).NotTo(HaveOccurred())
		Expect(v).To(Equal(uint32(3)))
		Expect(poses).To(Equal([]*hooking.HookPos{HookPosRead}))
		Expect(seen[0]).To(Equal(Access{Addr: 0x8000, Value: 3}))
	})

	It("should report failed writes", func() {
		failure := errors.New("link down")
		inner.EXPECT().Write(uint32(0x9000), uint32(1)).Return(failure)

		err := hooked.Write(0x9000, 1)

		Expect(err).To(MatchError(failure))
		Expect(poses).To(Equal([]*hooking.HookPos{HookPosWrite}))
		Expect(seen[0].Err).To(MatchError(failure))
	})

	It("should serialize accesses from several goroutines", func() {
		mem := NewMemory()
		shared := NewHooked("shared", mem)

		var wg sync.WaitGroup
		for g := uint32(0); g < 4; g++ {
			wg.Add(1)

			g := g
			go func() {
				defer GinkgoRecover()
				defer wg.Done()

				for i := uint32(0); i < 64; i++ {
					addr := (g*64 + i) * 4
					Expect(shared.Write(addr, i)).To(Succeed())
				}
			}()
		}

		wg.Wait()

		Expect(mem.Len()).To(Equal(256))
	})
})

package sdhc

// Register byte offsets within the controller block. The layout is the
// standard SD Host Controller register map; offsets and bit positions
// must match it exactly.
const (
	RegDMAAddress     uint32 = 0x00
	RegArgument2      uint32 = 0x00 // shares the DMA address word
	RegBlockSize      uint32 = 0x04
	RegBlockCount     uint32 = 0x06
	RegArgument       uint32 = 0x08
	RegTransferMode   uint32 = 0x0C
	RegCommand        uint32 = 0x0E
	RegResponse       uint32 = 0x10 // four words, 0x10..0x1C
	RegBuffer         uint32 = 0x20 // data port
	RegPresentState   uint32 = 0x24
	RegHostControl    uint32 = 0x28
	RegPowerControl   uint32 = 0x29
	RegBlockGap       uint32 = 0x2A
	RegWakeUp         uint32 = 0x2B
	RegClockControl   uint32 = 0x2C
	RegTimeoutControl uint32 = 0x2E
	RegSoftwareReset  uint32 = 0x2F
	RegIntStatus      uint32 = 0x30
	RegIntEnable      uint32 = 0x34
	RegSignalEnable   uint32 = 0x38
	RegACmd12Err      uint32 = 0x3C
	RegHostControl2   uint32 = 0x3E
	RegCapabilities   uint32 = 0x40
	RegCapabilities1  uint32 = 0x44
	RegMaxCurrent     uint32 = 0x48
	RegSlotIntStatus  uint32 = 0xFC
	RegHostVersion    uint32 = 0xFE
)

// Transfer mode register bits.
const (
	TrnsDMA          uint16 = 0x01
	TrnsBlockCountEn uint16 = 0x02
	TrnsAutoCMD12    uint16 = 0x04
	TrnsAutoCMD23    uint16 = 0x08
	TrnsRead         uint16 = 0x10
	TrnsMulti        uint16 = 0x20
)

// Command register response/check bits.
const (
	cmdRespNone      uint16 = 0x00
	cmdRespLong      uint16 = 0x01
	cmdRespShort     uint16 = 0x02
	cmdRespShortBusy uint16 = 0x03
	cmdCRC           uint16 = 0x08
	cmdIndex         uint16 = 0x10
	cmdData          uint16 = 0x20
)

// makeCommand composes the command register value from an opcode and
// its flag bits.
func makeCommand(opcode uint8, flags uint16) uint16 {
	return uint16(opcode&0x3F)<<8 | flags&0xFF
}

// commandOpcode extracts the opcode from a command register value.
func commandOpcode(cmd uint16) uint8 {
	return uint8(cmd>>8) & 0x3F
}

// Present state register bits.
const (
	PresentCmdInhibit  uint32 = 0x00000001
	PresentDataInhibit uint32 = 0x00000002
	PresentWriteActive uint32 = 0x00000100
	PresentReadActive  uint32 = 0x00000200
	PresentSpaceAvail  uint32 = 0x00000400
	PresentDataAvail   uint32 = 0x00000800
	PresentCardPresent uint32 = 0x00010000
)

// Host control register bits.
const (
	Ctrl4BitBus   uint8 = 0x02
	CtrlHighSpeed uint8 = 0x04
	CtrlDMAMask   uint8 = 0x18
	Ctrl8BitBus   uint8 = 0x20
)

// Host control 2 driver strength bits.
const (
	Ctrl2DrvTypeMask uint16 = 0x0030
	Ctrl2DrvTypeB    uint16 = 0x0000
	Ctrl2DrvTypeA    uint16 = 0x0010
	Ctrl2DrvTypeC    uint16 = 0x0020
	Ctrl2DrvTypeD    uint16 = 0x0030
)

// Power control register bits.
const (
	PowerOn  uint8 = 0x01
	Power180 uint8 = 0x0A
	Power300 uint8 = 0x0C
	Power330 uint8 = 0x0E
)

// Clock control register bits.
const (
	ClockIntEn     uint16 = 0x0001
	ClockIntStable uint16 = 0x0002
	ClockCardEn    uint16 = 0x0004
	dividerShift          = 8
	dividerHiShift        = 6
	divMask               = 0xFF
	divMaskLen            = 8
	divHiMask             = 0x300
	maxDivSpec300         = 2046
)

// Software reset register bits.
const (
	ResetAll  uint8 = 0x01
	ResetCmd  uint8 = 0x02
	ResetData uint8 = 0x04
)

// Interrupt status/enable/signal register bits.
const (
	IntResponse    uint32 = 0x00000001
	IntDataEnd     uint32 = 0x00000002
	IntBlockGap    uint32 = 0x00000004
	IntDMAEnd      uint32 = 0x00000008
	IntSpaceAvail  uint32 = 0x00000010
	IntDataAvail   uint32 = 0x00000020
	IntCardInsert  uint32 = 0x00000040
	IntCardRemove  uint32 = 0x00000080
	IntCardInt     uint32 = 0x00000100
	IntError       uint32 = 0x00008000
	IntTimeout     uint32 = 0x00010000
	IntCRC         uint32 = 0x00020000
	IntEndBit      uint32 = 0x00040000
	IntIndex       uint32 = 0x00080000
	IntDataTimeout uint32 = 0x00100000
	IntDataCRC     uint32 = 0x00200000
	IntDataEndBit  uint32 = 0x00400000
	IntBusPower    uint32 = 0x00800000
	IntACmd12Err   uint32 = 0x01000000
	IntADMAError   uint32 = 0x02000000

	IntCmdMask  = IntResponse | IntTimeout | IntCRC | IntEndBit | IntIndex
	IntDataMask = IntDataEnd | IntDMAEnd | IntSpaceAvail | IntDataAvail |
		IntDataTimeout | IntDataCRC | IntDataEndBit | IntADMAError | IntBlockGap
)

// Block size register composition. The upper bits select the DMA buffer
// boundary; 7 selects the largest (512K) boundary.
const defaultBoundaryArg = 7

func makeBlockSize(boundary, blockSize int) uint16 {
	return uint16(boundary&0x7)<<12 | uint16(blockSize&0xFFF)
}

// timeoutControlValue is the data timeout counter exponent programmed
// for every data phase and busy-signaled command.
const timeoutControlValue uint8 = 0x0E

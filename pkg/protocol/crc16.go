package protocol

// CRC-16/CCITT-FALSE (poly 0x1021, init 0xFFFF), the checksum carried in the
// frame header. Table-driven; the table is built once at init.

var crc16Table [256]uint16

func init() {
    for i := 0; i < 256; i++ {
        crc := uint16(i) << 8
        for b := 0; b < 8; b++ {
            if crc&0x8000 != 0 {
                crc = (crc << 1) ^ 0x1021
            } else {
                crc <<= 1
            }
        }
        crc16Table[i] = crc
    }
}

// Checksum16 computes the CRC-16 of data.
func Checksum16(data []byte) uint16 {
    crc := uint16(0xFFFF)
    for _, b := range data {
        crc = (crc << 8) ^ crc16Table[byte(crc>>8)^b]
    }
    return crc
}

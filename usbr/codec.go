package usbr

import (
	"bytes"
	"encoding/binary"
)

// DecodeConnectHeader parses a DeviceConnect type header.
func DecodeConnectHeader(b []byte) (ConnectHeader, error) {
	var h ConnectHeader
	err := binary.Read(bytes.NewReader(b), binary.LittleEndian, &h)
	return h, err
}

// EncodeConnectHeader serializes a DeviceConnect type header.
func EncodeConnectHeader(h ConnectHeader) []byte {
	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, h)
	return buf.Bytes()
}

// DecodeInterfaceInfoHeader parses an InterfaceInfo type header.
func DecodeInterfaceInfoHeader(b []byte) (InterfaceInfoHeader, error) {
	var h InterfaceInfoHeader
	err := binary.Read(bytes.NewReader(b), binary.LittleEndian, &h)
	return h, err
}

// DecodeEpInfoHeader parses an EpInfo type header.
func DecodeEpInfoHeader(b []byte) (EpInfoHeader, error) {
	var h EpInfoHeader
	err := binary.Read(bytes.NewReader(b), binary.LittleEndian, &h)
	return h, err
}

// DecodeSetConfHeader parses a SetConf type header.
func DecodeSetConfHeader(b []byte) (SetConfHeader, error) {
	var h SetConfHeader
	err := binary.Read(bytes.NewReader(b), binary.LittleEndian, &h)
	return h, err
}

// DecodeConfStatusHeader parses a ConfStatus type header.
func DecodeConfStatusHeader(b []byte) (ConfStatusHeader, error) {
	var h ConfStatusHeader
	err := binary.Read(bytes.NewReader(b), binary.LittleEndian, &h)
	return h, err
}

// DecodeSetAltSettingHeader parses a SetAltSetting type header.
func DecodeSetAltSettingHeader(b []byte) (SetAltSettingHeader, error) {
	var h SetAltSettingHeader
	err := binary.Read(bytes.NewReader(b), binary.LittleEndian, &h)
	return h, err
}

// DecodeGetAltSettingHeader parses a GetAltSetting type header.
func DecodeGetAltSettingHeader(b []byte) (GetAltSettingHeader, error) {
	var h GetAltSettingHeader
	err := binary.Read(bytes.NewReader(b), binary.LittleEndian, &h)
	return h, err
}

// DecodeAltSettingStatusHeader parses an AltSettingStatus type header.
func DecodeAltSettingStatusHeader(b []byte) (AltSettingStatusHeader, error) {
	var h AltSettingStatusHeader
	err := binary.Read(bytes.NewReader(b), binary.LittleEndian, &h)
	return h, err
}

// DecodeBulkPacketHeader parses a BulkPacket type header.
func DecodeBulkPacketHeader(b []byte) (BulkPacketHeader, error) {
	var h BulkPacketHeader
	err := binary.Read(bytes.NewReader(b), binary.LittleEndian, &h)
	return h, err
}

// DecodeControlPacketHeader parses a ControlPacket type header.
func DecodeControlPacketHeader(b []byte) (ControlPacketHeader, error) {
	var h ControlPacketHeader
	err := binary.Read(bytes.NewReader(b), binary.LittleEndian, &h)
	return h, err
}

// EncodeControlPacketHeader serializes a ControlPacket type header.
func EncodeControlPacketHeader(h ControlPacketHeader) []byte {
	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, h)
	return buf.Bytes()
}

package util

import (
	"bytes"
	"encoding/binary"
	"errors"
	"os"
)

func NewBufferReader(data []byte) BufferReader {
	reader := bytes.NewReader(data)
	return BufferReader{
		reader: reader,
	}
}

type BufferReader struct {
	reader *bytes.Reader
}

func Read[T any](reader BufferReader) T {
	var value T
	binary.Read(reader.reader, binary.LittleEndian, &value)
	return value
}

func ReadArray[T any](reader BufferReader) Array[T] {
	var size int32
	binary.Read(reader.reader, binary.LittleEndian, &size)
	value := NewArray[T](int(size))
	binary.Read(reader.reader, binary.LittleEndian, []T(value))
	return value
}

func NewBufferWriter() BufferWriter {
	buffer := bytes.Buffer{}
	return BufferWriter{
		buffer: &buffer,
	}
}

type BufferWriter struct {
	buffer *bytes.Buffer
}

func (self *BufferWriter) Bytes() []byte {
	return self.buffer.Bytes()
}

func Write[T any](writer BufferWriter, value T) {
	binary.Write(writer.buffer, binary.LittleEndian, value)
}

func WriteArray[T any](writer BufferWriter, value Array[T]) {
	binary.Write(writer.buffer, binary.LittleEndian, int32(value.Length()))
	binary.Write(writer.buffer, binary.LittleEndian, value)
}

func WriteBufferToFile(writer BufferWriter, file string) error {
	return os.WriteFile(file, writer.Bytes(), 0644)
}

func ReadBufferFromFile(file string) (BufferReader, error) {
	_, err := os.Stat(file)
	if errors.Is(err, os.ErrNotExist) {
		return BufferReader{}, errors.New("file not found: " + file)
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return BufferReader{}, err
	}
	return NewBufferReader(data), nil
}

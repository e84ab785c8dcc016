package transfer

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type FixedWriterTestSuite struct {
	suite.Suite

	buf *bytes.Buffer
}

func TestFixedWriterTestSuite(t *testing.T) {
	suite.Run(t, new(FixedWriterTestSuite))
}

func (s *FixedWriterTestSuite) SetupTest() {
	s.buf = bytes.NewBuffer(nil)
}

func (s *FixedWriterTestSuite) TestWrite() {
	fw := NewFixedWriter(s.buf, 11)

	n, err := fw.Write([]byte("hello "))
	s.Require().NoError(err)
	s.Equal(6, n)

	n, err = fw.Write([]byte("world"))
	s.Require().NoError(err)
	s.Equal(5, n)

	s.NoError(fw.Close())
	s.Equal("hello world", s.buf.String())
}

func (s *FixedWriterTestSuite) TestExcess() {
	fw := NewFixedWriter(s.buf, 3)

	_, err := fw.Write([]byte("hello"))
	s.ErrorIs(err, ErrExcessData)
	s.Empty(s.buf.Bytes())
}

func (s *FixedWriterTestSuite) TestShortClose() {
	fw := NewFixedWriter(s.buf, 5)

	_, err := fw.Write([]byte("he"))
	s.Require().NoError(err)

	s.ErrorIs(fw.Close(), ErrShortBody)
}

type ChunkedWriterTestSuite struct {
	suite.Suite

	buf *bytes.Buffer
}

func TestChunkedWriterTestSuite(t *testing.T) {
	suite.Run(t, new(ChunkedWriterTestSuite))
}

func (s *ChunkedWriterTestSuite) SetupTest() {
	s.buf = bytes.NewBuffer(nil)
}

func (s *ChunkedWriterTestSuite) TestWriteBuffersUntilFull() {
	cw := NewChunkedWriter(s.buf, 4)

	n, err := cw.Write([]byte("AB"))
	s.Require().NoError(err)
	s.Equal(2, n)
	// Nothing on the wire until a full chunk accumulates.
	s.Empty(s.buf.Bytes())

	n, err = cw.Write([]byte("CDEF"))
	s.Require().NoError(err)
	s.Equal(4, n)
	s.Equal("4\r\nABCD\r\n", s.buf.String())

	s.Require().NoError(cw.Close())
	s.Equal("4\r\nABCD\r\n2\r\nEF\r\n0\r\n\r\n", s.buf.String())
}

func (s *ChunkedWriterTestSuite) TestCloseEmpty() {
	cw := NewChunkedWriter(s.buf, 4)

	s.Require().NoError(cw.Close())
	s.Equal("0\r\n\r\n", s.buf.String())
}

func (s *ChunkedWriterTestSuite) TestCloseTwice() {
	cw := NewChunkedWriter(s.buf, 4)

	s.Require().NoError(cw.Close())
	s.Require().NoError(cw.Close())
	s.Equal("0\r\n\r\n", s.buf.String())

	_, err := cw.Write([]byte("late"))
	s.Error(err)
}

func (s *ChunkedWriterTestSuite) TestDefaultChunkSize() {
	cw := NewChunkedWriter(s.buf, 0)

	data := bytes.Repeat([]byte("a"), DefaultChunkSize)
	_, err := cw.Write(data)
	s.Require().NoError(err)

	s.Equal("400\r\n"+string(data)+"\r\n", s.buf.String())
}

func TestBufferedWriter(t *testing.T) {
	bw := NewBufferedWriter()

	_, err := bw.Write([]byte("hello "))
	require.NoError(t, err)
	_, err = bw.Write([]byte("world"))
	require.NoError(t, err)

	require.NoError(t, bw.Close())
	assert.Equal(t, 11, bw.Len())
	assert.Equal(t, "hello world", string(bw.Bytes()))

	_, err = bw.Write([]byte("more"))
	assert.Error(t, err)
}

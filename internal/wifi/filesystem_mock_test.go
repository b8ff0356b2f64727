package wifi

import "github.com/stretchr/testify/mock"

type fileManagementMock struct {
	mock.Mock
}

func (fm *fileManagementMock) writeFileAtomic(path string, data []byte) error {
	args := fm.Called(path, data)
	return args.Error(0)
}

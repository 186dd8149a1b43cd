package repotest

import "github.com/maheshrc27/tiktok-scheduler/internal/repository"

var (
	_ repository.PostRepository           = (*Posts)(nil)
	_ repository.ConnectionRepository     = (*Connections)(nil)
	_ repository.PostingHistoryRepository = (*History)(nil)
	_ repository.UserRepository           = (*Users)(nil)
)

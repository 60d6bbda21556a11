package services

import (
	"github.com/google/wire"

	"github.com/bionicotaku/slidesmith/internal/infrastructure/gcs"
	"github.com/bionicotaku/slidesmith/internal/repositories"
)

// ProviderSet 暴露服务层构造器供 Wire 依赖注入使用。
var ProviderSet = wire.NewSet(
	NewUploadService,
	NewJobService,
	ProvideUploadSigner,
	ProvideJobRepositoryContract,
	ProvideResultURLIssuer,
)

// ProvideUploadSigner 将 gcs.URLSigner 适配为 UploadSigner。
func ProvideUploadSigner(signer *gcs.URLSigner) UploadSigner { return signer }

// ProvideJobRepositoryContract 将 JobRepository 适配为服务层契约。
func ProvideJobRepositoryContract(repo *repositories.JobRepository) JobRepositoryContract {
	return repo
}

// ProvideResultURLIssuer 将 UploadService 适配为 ResultURLIssuer。
func ProvideResultURLIssuer(svc *UploadService) ResultURLIssuer { return svc }

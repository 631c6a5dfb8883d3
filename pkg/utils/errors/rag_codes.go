package errors

// 问答服务错误 (服务 20)
var (
	// 请求类 (01)
	ErrInvalidRequest = NewRequestErr(ServiceRAG, 1, "Invalid request parameters", "请求参数无效")
	ErrInvalidFilter  = NewRequestErr(ServiceRAG, 2, "Invalid metadata filter", "元数据过滤条件无效")
	ErrInvalidURL     = NewRequestErr(ServiceRAG, 3, "Invalid video URL", "视频链接无效")

	// 资源类 (04)
	ErrCompanyNotFound = NewNotFoundErr(ServiceRAG, 1, "Company thesis not found", "未找到公司投资论文")

	// 冲突类 (05)
	ErrIngestionRunning = NewConflictErr(ServiceRAG, 1, "Ingestion already running", "数据导入正在进行")

	// 内部类 (07)
	ErrAcquisitionFailed   = NewInternalErr(ServiceRAG, 1, "Source acquisition failed", "数据源获取失败")
	ErrAgentStuck          = NewInternalErr(ServiceRAG, 2, "Agent could not reach a final answer", "智能体未能得出最终答案")
	ErrExtractionMalformed = NewInternalErr(ServiceRAG, 3, "Malformed extraction output", "结构化抽取结果格式错误")
	ErrIndexFailed         = NewInternalErr(ServiceRAG, 4, "Indexing failed", "索引写入失败")
	ErrTranscription       = NewInternalErr(ServiceRAG, 5, "Could not transcribe audio", "音频转写失败")
	ErrQueryFailed         = NewInternalErr(ServiceRAG, 6, "Query failed", "查询失败")

	// 数据库类 (08)
	ErrLedger = NewDatabaseErr(ServiceRAG, 1, "Ingestion ledger unavailable", "导入台账不可用")

	// 网络类 (10)
	ErrLLMUnavailable = NewNetworkErr(ServiceRAG, 1, "Language model unavailable", "大模型服务不可用")
	ErrMarketData     = NewNetworkErr(ServiceThirdPartyMarket, 1, "Market data unavailable", "行情数据不可用")
)

package logging

type Category string
type SubCategory string
type ExtraKey string

const (
	General         Category = "General"
	IO              Category = "IO"
	Internal        Category = "Internal"
	Redis           Category = "Redis"
	RabbitMQ        Category = "RabbitMQ"
	MongoDB         Category = "MongoDB"
	Validation      Category = "Validation"
	RequestResponse Category = "RequestResponse"
	Prometheus      Category = "Prometheus"
	Websocket       Category = "Websocket"
	Match           Category = "Match"
	Judge           Category = "Judge"
)

const (
	// General
	Startup         SubCategory = "Startup"
	Shutdown        SubCategory = "Shutdown"
	RateLimiting    SubCategory = "RateLimiting"
	ExternalService SubCategory = "ExternalService"

	// Websocket
	Connect    SubCategory = "Connect"
	Disconnect SubCategory = "Disconnect"
	Dispatch   SubCategory = "Dispatch"
	SlowClient SubCategory = "SlowClient"

	// Match
	Membership SubCategory = "Membership"
	Lifecycle  SubCategory = "Lifecycle"
	Timer      SubCategory = "Timer"
	EditRelay  SubCategory = "EditRelay"
	Submission SubCategory = "Submission"

	// Persistence and messaging
	Publish SubCategory = "Publish"
	Consume SubCategory = "Consume"
	Insert  SubCategory = "Insert"
	Select  SubCategory = "Select"
)

const (
	AppName      ExtraKey = "AppName"
	LoggerName   ExtraKey = "Logger"
	ClientIp     ExtraKey = "ClientIp"
	HostIp       ExtraKey = "HostIp"
	Method       ExtraKey = "Method"
	StatusCode   ExtraKey = "StatusCode"
	BodySize     ExtraKey = "BodySize"
	Path         ExtraKey = "Path"
	Latency      ExtraKey = "Latency"
	RequestBody  ExtraKey = "RequestBody"
	ResponseBody ExtraKey = "ResponseBody"
	ErrorMessage ExtraKey = "ErrorMessage"
	ConnID       ExtraKey = "ConnID"
	RoomID       ExtraKey = "RoomID"
	Identity     ExtraKey = "Identity"
	EventType    ExtraKey = "EventType"
	TeamID       ExtraKey = "TeamID"
	ProblemID    ExtraKey = "ProblemID"
	Reason       ExtraKey = "Reason"
	RoutingKey   ExtraKey = "RoutingKey"
)
